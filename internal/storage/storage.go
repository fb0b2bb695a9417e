// storage задаёт контракты хранилищ accounts-сервиса и их сентинельные ошибки.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/pribylovaa/accounts-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/объект).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument — параметры не проходят ограничения стораджа
	// (размер/тип изображения и т.п.).
	ErrInvalidArgument = errors.New("invalid argument")
)

// AccountUpdate — частичное обновление данных аккаунта.
// nil-указатель означает «поле не трогаем».
type AccountUpdate struct {
	FullName *string
	Email    *string
}

// UserStorage выполняет операции над пользователями.
// Все операции атомарны на уровне одного документа: конкурентные
// login/refresh/logout одного пользователя сериализуются на стороне БД.
type UserStorage interface {
	// CreateUser создаёт нового пользователя. При конфликте уникальности
	// username/email возвращает ErrAlreadyExists.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id string) (*models.User, error)
	// UserByLogin находит пользователя по username ИЛИ email.
	UserByLogin(ctx context.Context, username, email string) (*models.User, error)
	// SetRefreshToken безусловно перезаписывает хэш refresh-токена
	// (новый login инвалидирует предыдущую сессию).
	SetRefreshToken(ctx context.Context, id, tokenHash string) error
	// RotateRefreshToken атомарно заменяет oldHash на newHash (compare-and-set).
	// Возвращает false, если текущее значение не совпало с oldHash —
	// параллельная ротация уже победила.
	RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error)
	// ClearRefreshToken снимает хэш refresh-токена ($unset). Идемпотентна.
	ClearRefreshToken(ctx context.Context, id string) error
	// UpdatePassword заменяет bcrypt-хэш пароля.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// UpdateAccount обновляет поля аккаунта и возвращает свежий документ.
	UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*models.User, error)
	// UpdateAvatarURL заменяет URL аватара и возвращает свежий документ.
	UpdateAvatarURL(ctx context.Context, id, url string) (*models.User, error)
	// UpdateCoverImageURL заменяет URL обложки и возвращает свежий документ.
	UpdateCoverImageURL(ctx context.Context, id, url string) (*models.User, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	Close(ctx context.Context) error
}

// ImageUpload — входные данные загрузки изображения.
type ImageUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// ImageStorage хранит бинарные изображения и отдаёт публичные URL.
type ImageStorage interface {
	// UploadImage сохраняет объект под ключом "<kind>/<uuid>.<ext>"
	// и возвращает публичный URL.
	UploadImage(ctx context.Context, kind string, upload ImageUpload) (string, error)
}
