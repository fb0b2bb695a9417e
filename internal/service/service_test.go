package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/mocks"
	"github.com/stretchr/testify/require"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  30 * time.Second,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "accounts-service",
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *mocks.MockImageStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	img := mocks.NewMockImageStorage(ctrl)
	svc := New(st, img, testCfg())
	return svc, st, img, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func testUser(t *testing.T, pw string) *models.User {
	t.Helper()
	return &models.User{
		ID:           "64f000000000000000000001",
		Username:     "ann",
		Email:        "ann@x.com",
		FullName:     "Ann Example",
		AvatarURL:    "https://cdn.example.com/avatars/a.png",
		PasswordHash: mustHashPW(t, pw),
	}
}
