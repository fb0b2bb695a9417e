package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и обновлении сессии.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API; на сервере не хранится;
//   - RefreshToken — долгоживущий JWT (отдельный секрет), предъявляется для
//     выпуска новой пары; на сервере хранится только его sha256-хэш;
//   - AccessExpiresAt / RefreshExpiresAt — моменты истечения токенов (UTC).
type TokenPair struct {
	// AccessToken — JWT для авторизации запросов.
	AccessToken string
	// RefreshToken — JWT для обновления пары.
	RefreshToken string
	// AccessExpiresAt — время истечения действия access-токена (UTC).
	AccessExpiresAt time.Time
	// RefreshExpiresAt — время истечения действия refresh-токена (UTC).
	RefreshExpiresAt time.Time
}
