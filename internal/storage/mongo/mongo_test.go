package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testTimeout — общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// TestMain запускает MongoDB в контейнере один раз на весь пакет тестов.
// Адрес контейнера прокидывается в ENV DATABASE_URL, а каждая спецификация
// создаёт свою БД с уникальным именем (см. newTestConfig).
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})

	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	_ = os.Setenv("DATABASE_URL", uri)

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test; set GO_TEST_INTEGRATION=1 to run")
	}
}

// newTestConfig создаёт конфиг с отдельной тестовой БД.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	baseURL := os.Getenv("DATABASE_URL")
	if baseURL == "" {
		baseURL = "mongodb://localhost:27017"
	}

	dbName := "accounts_test_" + uuid.New().String()
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL + dbName
	} else {
		baseURL = baseURL + "/" + dbName
	}

	return &config.Config{
		Mongo: config.MongoConfig{
			URL: baseURL,
		},
	}
}

// mustNewMongo создаёт подключение к тестовой БД и регистрирует очистку по завершении теста.
func mustNewMongo(t *testing.T, cfg *config.Config) *Mongo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	m, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("cannot connect to MongoDB in container: %v (DATABASE_URL=%s)", err, cfg.Mongo.URL)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})

	return m
}

func newUser(suffix string) *models.User {
	return &models.User{
		Username:     "user_" + suffix,
		Email:        "user_" + suffix + "@example.com",
		FullName:     "User " + suffix,
		AvatarURL:    "https://cdn.example.com/avatars/" + suffix + ".png",
		PasswordHash: "$2a$10$fakehashfakehashfakehashfakehashfakehashfakehash" + suffix,
	}
}

// TestDatabaseFromURI — извлечение имени БД из URI и дефолт.
func TestDatabaseFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/accounts_db", "accounts_db"},
		{"mongodb://localhost:27017/", defaultDBName},
		{"mongodb://localhost:27017", defaultDBName},
		{"mongodb://u:p@host:27017/custom?authSource=admin", "custom"},
	}
	for _, tt := range tests {
		if got := databaseFromURI(tt.uri); got != tt.want {
			t.Errorf("databaseFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

// TestCreateUser_RoundTrip — создание и чтение по id/логину.
func TestCreateUser_RoundTrip(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	created, err := m.CreateUser(ctx, newUser("alice"))
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	if created.ID == "" {
		t.Fatalf("expected generated ID")
	}

	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %v / %v", created.CreatedAt, created.UpdatedAt)
	}

	byID, err := m.UserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("UserByID error: %v", err)
	}
	if byID.Username != "user_alice" || byID.Email != "user_alice@example.com" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	byName, err := m.UserByLogin(ctx, "user_alice", "")
	if err != nil {
		t.Fatalf("UserByLogin(username) error: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("id mismatch by username: %s vs %s", byName.ID, created.ID)
	}

	byEmail, err := m.UserByLogin(ctx, "", "user_alice@example.com")
	if err != nil {
		t.Fatalf("UserByLogin(email) error: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("id mismatch by email: %s vs %s", byEmail.ID, created.ID)
	}
}

// TestCreateUser_UniqueConflicts — уникальные индексы username/email.
func TestCreateUser_UniqueConflicts(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	if _, err := m.CreateUser(ctx, newUser("bob")); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	// Тот же username, другой email.
	dup := newUser("bob")
	dup.Email = "other_bob@example.com"
	if _, err := m.CreateUser(ctx, dup); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate username, got %v", err)
	}

	// Тот же email, другой username.
	dup2 := newUser("bob2")
	dup2.Email = "user_bob@example.com"
	if _, err := m.CreateUser(ctx, dup2); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}
}

// TestUserByID_NotFound — несуществующий и синтаксически невалидный id.
func TestUserByID_NotFound(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	if _, err := m.UserByID(ctx, "65e0a0c9fd2f000000000000"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound for absent id, got %v", err)
	}

	if _, err := m.UserByID(ctx, "deadbeef"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound for bad id format, got %v", err)
	}
}

// TestUserByLogin_EmptyFilter — пустые username и email не матчат ничего.
func TestUserByLogin_EmptyFilter(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	if _, err := m.UserByLogin(ctx, "", ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound for empty filter, got %v", err)
	}
}

// TestRefreshTokenLifecycle — set/rotate/clear и семантика CAS.
func TestRefreshTokenLifecycle(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	created, err := m.CreateUser(ctx, newUser("carol"))
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	if err := m.SetRefreshToken(ctx, created.ID, "hash-v1"); err != nil {
		t.Fatalf("SetRefreshToken error: %v", err)
	}

	got, err := m.UserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("UserByID error: %v", err)
	}
	if got.RefreshToken != "hash-v1" {
		t.Fatalf("RefreshToken = %q, want hash-v1", got.RefreshToken)
	}

	// CAS со старым хэшем — успех.
	rotated, err := m.RotateRefreshToken(ctx, created.ID, "hash-v1", "hash-v2")
	if err != nil {
		t.Fatalf("RotateRefreshToken error: %v", err)
	}
	if !rotated {
		t.Fatalf("rotation with matching hash must succeed")
	}

	// Повторный CAS с уже ротированным хэшем — отказ без ошибки.
	rotated, err = m.RotateRefreshToken(ctx, created.ID, "hash-v1", "hash-v3")
	if err != nil {
		t.Fatalf("RotateRefreshToken(stale) error: %v", err)
	}
	if rotated {
		t.Fatalf("rotation with stale hash must not succeed")
	}

	got, err = m.UserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("UserByID error: %v", err)
	}
	if got.RefreshToken != "hash-v2" {
		t.Fatalf("RefreshToken = %q, want hash-v2 (stale CAS must not overwrite)", got.RefreshToken)
	}

	// Снятие токена и идемпотентный повтор.
	if err := m.ClearRefreshToken(ctx, created.ID); err != nil {
		t.Fatalf("ClearRefreshToken error: %v", err)
	}
	if err := m.ClearRefreshToken(ctx, created.ID); err != nil {
		t.Fatalf("ClearRefreshToken(repeat) error: %v", err)
	}

	got, err = m.UserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("UserByID error: %v", err)
	}
	if got.RefreshToken != "" {
		t.Fatalf("RefreshToken = %q, want empty after clear", got.RefreshToken)
	}

	// Операции над несуществующим пользователем.
	if err := m.SetRefreshToken(ctx, "65e0a0c9fd2f000000000000", "h"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := m.ClearRefreshToken(ctx, "65e0a0c9fd2f000000000000"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// TestUpdatePassword — замена хэша и NotFound для чужого id.
func TestUpdatePassword(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	created, err := m.CreateUser(ctx, newUser("dave"))
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	if err := m.UpdatePassword(ctx, created.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePassword error: %v", err)
	}

	got, err := m.UserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("UserByID error: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Fatalf("PasswordHash = %q, want new-hash", got.PasswordHash)
	}
	if !got.UpdatedAt.After(created.UpdatedAt) && !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("UpdatedAt went backwards: %v -> %v", created.UpdatedAt, got.UpdatedAt)
	}

	if err := m.UpdatePassword(ctx, "65e0a0c9fd2f000000000000", "h"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// TestUpdateAccount — частичный $set, возврат обновлённого документа
// и конфликт уникальности email.
func TestUpdateAccount(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	created, err := m.CreateUser(ctx, newUser("erin"))
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	fullName := "Erin Renamed"
	email := "erin_new@example.com"
	got, err := m.UpdateAccount(ctx, created.ID, storage.AccountUpdate{
		FullName: &fullName,
		Email:    &email,
	})
	if err != nil {
		t.Fatalf("UpdateAccount error: %v", err)
	}
	if got.FullName != fullName || got.Email != email {
		t.Fatalf("unexpected user after update: %+v", got)
	}

	// Занятый email другого пользователя — конфликт.
	other, err := m.CreateUser(ctx, newUser("frank"))
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	taken := "erin_new@example.com"
	if _, err := m.UpdateAccount(ctx, other.ID, storage.AccountUpdate{Email: &taken}); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on taken email, got %v", err)
	}

	if _, err := m.UpdateAccount(ctx, "65e0a0c9fd2f000000000000", storage.AccountUpdate{FullName: &fullName}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// TestUpdateImageURLs — замена URL аватара и обложки.
func TestUpdateImageURLs(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	created, err := m.CreateUser(ctx, newUser("grace"))
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	got, err := m.UpdateAvatarURL(ctx, created.ID, "https://cdn.example.com/avatars/new.png")
	if err != nil {
		t.Fatalf("UpdateAvatarURL error: %v", err)
	}
	if got.AvatarURL != "https://cdn.example.com/avatars/new.png" {
		t.Fatalf("AvatarURL = %q", got.AvatarURL)
	}

	got, err = m.UpdateCoverImageURL(ctx, created.ID, "https://cdn.example.com/covers/new.png")
	if err != nil {
		t.Fatalf("UpdateCoverImageURL error: %v", err)
	}
	if got.CoverImageURL != "https://cdn.example.com/covers/new.png" {
		t.Fatalf("CoverImageURL = %q", got.CoverImageURL)
	}

	if _, err := m.UpdateAvatarURL(ctx, "65e0a0c9fd2f000000000000", "u"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// TestEnsureIndexes_Created — уникальные индексы username/email существуют.
func TestEnsureIndexes_Created(t *testing.T) {
	requireIntegration(t)

	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	cur, err := m.users.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("Indexes().List error: %v", err)
	}
	defer cur.Close(ctx)

	haveNames := map[string]bool{}
	for cur.Next(ctx) {
		var spec map[string]any
		if err := cur.Decode(&spec); err != nil {
			t.Fatalf("decode index spec: %v", err)
		}
		if name, _ := spec["name"].(string); name != "" {
			haveNames[name] = true
		}
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor err: %v", err)
	}

	if !haveNames["uniq_username"] || !haveNames["uniq_email"] {
		t.Fatalf("required unique indexes not found; names=%v", haveNames)
	}
}
