package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"
	"github.com/pribylovaa/accounts-service/pkg/log"
)

// RegisterInput — входные данные регистрации.
// Avatar обязателен, CoverImage опционален.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *storage.ImageUpload
	CoverImage *storage.ImageUpload
}

// LoginInput — входные данные входа: username ИЛИ email плюс пароль.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Register создаёт нового пользователя.
//
// Валидация:
//   - username/email/fullName/password обязательны; username приводится
//     к нижнему регистру, email нормализуется и проверяется на формат;
//   - пароль — см. validatePassword;
//   - аватар обязателен: без аватара — 400.
//
// Поведение:
//   - занятые username/email дают ErrAlreadyExists (уникальные индексы БД —
//     источник истины, предварительный lookup лишь даёт ранний отказ);
//   - изображения загружаются в медиа-хранилище до создания записи;
//   - токены НЕ выпускаются: регистрация не означает вход.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	const op = "service/auth/Register"

	lg := log.From(ctx).With("op", op)

	username := strings.ToLower(strings.TrimSpace(input.Username))
	fullName := strings.TrimSpace(input.FullName)

	if username == "" || fullName == "" {
		lg.Warn("invalid argument: empty username or full_name")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	email, err := validateEmail(input.Email)
	if err != nil {
		lg.Warn("invalid argument: bad email")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if err := validatePassword(input.Password); err != nil {
		lg.Warn("invalid argument: weak or empty password")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if input.Avatar == nil {
		lg.Warn("invalid argument: avatar is required")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	// Ранний отказ по занятому username/email.
	_, err = s.storage.UserByLogin(ctx, username, email)
	if err == nil {
		lg.Warn("username or email already taken")

		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		lg.Error("storage error on UserByLogin", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	passwordHash, err := hashPassword(input.Password)
	if err != nil {
		lg.Error("password hash failed", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	avatarURL, err := s.uploadImage(ctx, "avatars", *input.Avatar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var coverURL string
	if input.CoverImage != nil {
		coverURL, err = s.uploadImage(ctx, "covers", *input.CoverImage)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		PasswordHash:  passwordHash,
	}

	created, err := s.storage.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			lg.Warn("unique index conflict on create")

			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}

		lg.Error("storage error on CreateUser", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	result := created.Sanitized()
	return &result, nil
}

// Login выполняет вход по username или email + пароль.
//
// Поведение:
//   - ни username, ни email не переданы — ErrInvalidArgument;
//   - пользователь не найден — ErrNotFound (контракт фронта: отличимо
//     от неверного пароля);
//   - неверный пароль — ErrInvalidCredentials;
//   - при успехе выпускается пара токенов, и хэш refresh-токена безусловно
//     перезаписывает предыдущий — любая прошлая сессия становится недействительной.
func (s *Service) Login(ctx context.Context, input LoginInput) (*models.TokenPair, *models.User, error) {
	const op = "service/auth/Login"

	lg := log.From(ctx).With("op", op)

	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" && email == "" {
		lg.Warn("invalid argument: neither username nor email")

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if len(input.Password) == 0 {
		lg.Warn("invalid argument: empty password")

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	user, err := s.storage.UserByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("user not found")

			return nil, nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on UserByLogin", "err", err)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !checkPassword(user.PasswordHash, input.Password) {
		lg.Warn("password mismatch", "user_id", user.ID)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		lg.Error("token issue failed", "err", err)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	// Коммит новой сессии: перезапись инвалидирует предыдущий refresh-токен.
	if err := s.storage.SetRefreshToken(ctx, user.ID, refreshHash(pair.RefreshToken)); err != nil {
		lg.Error("storage error on SetRefreshToken", "err", err)

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	result := user.Sanitized()
	return pair, &result, nil
}

// Logout закрывает сессию пользователя: снимает сохранённый refresh-токен.
// Идемпотентна — повторный logout (и logout несуществующего пользователя)
// не считается ошибкой.
func (s *Service) Logout(ctx context.Context, userID string) error {
	const op = "service/auth/Logout"

	lg := log.From(ctx).With("op", op, "user_id", userID)

	if err := s.storage.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		lg.Error("storage error on ClearRefreshToken", "err", err)

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return nil
}

// Refresh обновляет пару токенов по предъявленному refresh-токену (ротация).
//
// Поведение:
//   - пустой токен — ErrInvalidToken;
//   - битая подпись/формат — ErrInvalidToken, истёкший — ErrTokenExpired;
//   - субъект не найден — ErrInvalidToken;
//   - предъявленный токен не совпадает с сохранённым — ErrTokenReused:
//     старый токен уже ротирован, это replay; сохранённая сессия при этом
//     принудительно закрывается;
//   - при совпадении ротация выполняется compare-and-set'ом: из двух
//     конкурентных refresh с одним токеном успешен ровно один, второй
//     получает ErrTokenReused. Старый токен после ротации недействителен.
func (s *Service) Refresh(ctx context.Context, presented string) (*models.TokenPair, error) {
	const op = "service/auth/Refresh"

	lg := log.From(ctx).With("op", op)

	if strings.TrimSpace(presented) == "" {
		lg.Warn("empty refresh token")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, err := s.validateRefreshToken(presented)
	if err != nil {
		lg.Warn("refresh token validation failed", "err", err)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh subject not found", "user_id", userID)

			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("storage error on UserByID", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	oldHash := refreshHash(presented)
	if user.RefreshToken == "" || user.RefreshToken != oldHash {
		// Replay: токен уже ротирован (или сессии нет). Закрываем сессию —
		// украденный токен не должен оставлять живую пару на записи.
		lg.Warn("refresh token reuse detected", "user_id", user.ID)

		if clearErr := s.storage.ClearRefreshToken(ctx, user.ID); clearErr != nil && !errors.Is(clearErr, storage.ErrNotFound) {
			lg.Error("storage error on ClearRefreshToken", "err", clearErr)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrTokenReused)
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		lg.Error("token issue failed", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	rotated, err := s.storage.RotateRefreshToken(ctx, user.ID, oldHash, refreshHash(pair.RefreshToken))
	if err != nil {
		lg.Error("storage error on RotateRefreshToken", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !rotated {
		// Конкурентная ротация победила между чтением и CAS.
		lg.Warn("concurrent refresh lost the race", "user_id", user.ID)

		return nil, fmt.Errorf("%s: %w", op, ErrTokenReused)
	}

	return pair, nil
}

// ChangePassword меняет пароль после проверки старого.
// Действующий refresh-токен при этом не отзывается: смена пароля
// не закрывает текущую сессию.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	const op = "service/auth/ChangePassword"

	lg := log.From(ctx).With("op", op, "user_id", userID)

	if err := validatePassword(newPassword); err != nil {
		lg.Warn("invalid argument: weak or empty new password")

		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("user not found")

			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on UserByID", "err", err)

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if !checkPassword(user.PasswordHash, oldPassword) {
		lg.Warn("old password mismatch")

		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	newHash, err := hashPassword(newPassword)
	if err != nil {
		lg.Error("password hash failed", "err", err)

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if err := s.storage.UpdatePassword(ctx, user.ID, newHash); err != nil {
		lg.Error("storage error on UpdatePassword", "err", err)

		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return nil
}

// UserByID возвращает пользователя без чувствительных полей.
func (s *Service) UserByID(ctx context.Context, userID string) (*models.User, error) {
	const op = "service/auth/UserByID"

	lg := log.From(ctx).With("op", op, "user_id", userID)

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("user not found")

			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on UserByID", "err", err)

		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	result := user.Sanitized()
	return &result, nil
}

// issueTokenPair выпускает новую пару access+refresh токенов.
// Побочных эффектов нет: запись хэша — ответственность вызывающего.
func (s *Service) issueTokenPair(user *models.User) (*models.TokenPair, error) {
	const op = "service/auth/issueTokenPair"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.generateRefreshToken(user.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  now.Add(s.cfg.AccessTokenTTL),
		RefreshExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}, nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service/auth/validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	return strings.ToLower(email), nil
}

// uploadImage — общая обёртка загрузки изображения с маппингом ошибок стораджа.
func (s *Service) uploadImage(ctx context.Context, kind string, upload storage.ImageUpload) (string, error) {
	const op = "service/auth/uploadImage"

	lg := log.From(ctx).With("op", op, "kind", kind)

	url, err := s.images.UploadImage(ctx, kind, upload)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			lg.Warn("image rejected by storage", "err", err)

			return "", ErrInvalidArgument
		}

		lg.Error("image upload failed", "err", err)

		return "", ErrInternal
	}

	return url, nil
}
