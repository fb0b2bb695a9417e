package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"
	"github.com/pribylovaa/accounts-service/pkg/log"
)

// UpdateAccountInput — обновление данных аккаунта.
// Оба поля обязательны (контракт фронта).
type UpdateAccountInput struct {
	FullName string
	Email    string
}

// UpdateAccount обновляет fullName и email пользователя.
//
// Поведение:
//   - пустое любое из полей — ErrInvalidArgument;
//   - занятый email — ErrAlreadyExists;
//   - возвращает обновлённого пользователя без чувствительных полей.
func (s *Service) UpdateAccount(ctx context.Context, userID string, input UpdateAccountInput) (*models.User, error) {
	const op = "service/profile/UpdateAccount"

	lg := log.From(ctx).With("op", op, "user_id", userID)

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		lg.Warn("invalid argument: empty full_name")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	email, err := validateEmail(input.Email)
	if err != nil {
		lg.Warn("invalid argument: bad email")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	user, err := s.storage.UpdateAccount(ctx, userID, storage.AccountUpdate{
		FullName: &fullName,
		Email:    &email,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("user not found")

			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			lg.Warn("email already taken")

			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		default:
			lg.Error("storage error on UpdateAccount", "err", err)

			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	result := user.Sanitized()
	return &result, nil
}

// UpdateAvatar загружает новое изображение аватара и фиксирует его URL в профиле.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, upload storage.ImageUpload) (*models.User, error) {
	const op = "service/profile/UpdateAvatar"

	user, err := s.updateImage(ctx, userID, "avatars", upload, s.storage.UpdateAvatarURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateCoverImage загружает новую обложку и фиксирует её URL в профиле.
func (s *Service) UpdateCoverImage(ctx context.Context, userID string, upload storage.ImageUpload) (*models.User, error) {
	const op = "service/profile/UpdateCoverImage"

	user, err := s.updateImage(ctx, userID, "covers", upload, s.storage.UpdateCoverImageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// updateImage — общий сценарий «загрузить блоб, записать URL, вернуть профиль».
func (s *Service) updateImage(
	ctx context.Context,
	userID, kind string,
	upload storage.ImageUpload,
	setURL func(ctx context.Context, id, url string) (*models.User, error),
) (*models.User, error) {
	lg := log.From(ctx).With("user_id", userID, "kind", kind)

	url, err := s.uploadImage(ctx, kind, upload)
	if err != nil {
		return nil, err
	}

	user, err := setURL(ctx, userID, url)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("user not found on image update")

			return nil, ErrNotFound
		}

		lg.Error("storage error on image update", "err", err)

		return nil, ErrInternal
	}

	result := user.Sanitized()
	return &result, nil
}
