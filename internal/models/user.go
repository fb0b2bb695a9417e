// models содержит доменные сущности accounts-сервиса.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import "time"

// User — внутренняя доменная модель пользователя.
// Важно:
//   - ID — ObjectID MongoDB. Наружу/вовнутрь конвертируется в string (hex).
//   - Username хранится в нижнем регистре, Email нормализуется при записи.
//   - PasswordHash — bcrypt-хэш; наружу не отдаётся никогда.
//   - RefreshToken — sha256-хэш действующего refresh-токена (не сам токен).
//     Пустая строка означает «сессии нет». Инвариант: не более одного живого
//     refresh-токена на пользователя; login/refresh перезаписывают значение.
//   - AvatarURL обязателен (заполняется при регистрации), CoverImageURL опционален.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	PasswordHash  string    `json:"-"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Sanitized возвращает копию без чувствительных полей.
// json-теги и так прячут их при сериализации, но копия не даёт
// транспорту случайно дотянуться до хэшей.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""

	return u
}
