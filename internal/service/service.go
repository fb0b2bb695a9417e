// service содержит бизнес-логику accounts-сервиса:
// регистрацию и жизненный цикл сессии (login/logout/refresh-ротация),
// смену пароля и операции над профилем (аккаунт/аватар/обложка).
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданные хранилища потокобезопасны.
//   - Инвариант сессии: у пользователя не более одного живого refresh-токена;
//     login перезаписывает его безусловно, refresh — атомарным compare-and-set
//     на стороне БД, поэтому из двух конкурентных refresh успешен ровно один.
//   - Ошибки возвращаются сентинелами и далее маппятся HTTP-слоем
//     на статус-коды (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

var (
	// ErrInvalidArgument — некорректные или отсутствующие входные данные. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidCredentials — пароль не подошёл к найденному пользователю. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи
	// или его субъект не найден. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenReused — предъявлен refresh-токен, который уже был ротирован:
	// признак возможной кражи. Сессия при этом принудительно закрывается. HTTP 401.
	ErrTokenReused = errors.New("refresh token reused")

	// ErrNotFound — пользователь не найден. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — username или email уже заняты. HTTP 409.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInternal — внутренняя ошибка сервиса (сторадж/медиа-хранилище). HTTP 500.
	ErrInternal = errors.New("internal")
)

// Service описывает бизнес-логику accounts-сервиса.
type Service struct {
	storage storage.Storage
	images  storage.ImageStorage
	cfg     config.AuthConfig
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, images storage.ImageStorage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: st,
		images:  images,
		cfg:     cfg,
	}
}
