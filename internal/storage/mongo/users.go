package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDoc — представление пользователя в коллекции users.
// Отделено от доменной модели, чтобы явно управлять ObjectID и bson-тегами.
type userDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Username      string             `bson:"username"`
	Email         string             `bson:"email"`
	FullName      string             `bson:"full_name"`
	AvatarURL     string             `bson:"avatar_url"`
	CoverImageURL string             `bson:"cover_image_url,omitempty"`
	PasswordHash  string             `bson:"password_hash"`
	RefreshToken  string             `bson:"refresh_token,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

// toModel конвертирует документ в доменную модель (время — в UTC).
func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:            d.ID.Hex(),
		Username:      d.Username,
		Email:         d.Email,
		FullName:      d.FullName,
		AvatarURL:     d.AvatarURL,
		CoverImageURL: d.CoverImageURL,
		PasswordHash:  d.PasswordHash,
		RefreshToken:  d.RefreshToken,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

// MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

// oidFromHex трактует некорректный формат id как «нет такой записи».
func oidFromHex(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, storage.ErrNotFound
	}
	return oid, nil
}

// CreateUser создаёт пользователя. Конфликт уникальности username/email
// транслируется в storage.ErrAlreadyExists.
func (m *Mongo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage/mongo/CreateUser"

	now := toMS(time.Now())

	doc := userDoc{
		Username:      user.Username,
		Email:         user.Email,
		FullName:      user.FullName,
		AvatarURL:     user.AvatarURL,
		CoverImageURL: user.CoverImageURL,
		PasswordHash:  user.PasswordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	res, err := m.users.InsertOne(ctx, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		// Mongo всегда возвращает ObjectID.
		return nil, fmt.Errorf("%s: inserted id type", op)
	}

	doc.ID = oid
	return doc.toModel(), nil
}

// UserByID возвращает пользователя по идентификатору.
// Если запись не найдена — storage.ErrNotFound.
func (m *Mongo) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage/mongo/UserByID"

	oid, err := oidFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out userDoc
	if err := m.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&out); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out.toModel(), nil
}

// UserByLogin находит пользователя по username ИЛИ email.
// Пустые значения в фильтр не попадают.
func (m *Mongo) UserByLogin(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage/mongo/UserByLogin"

	var or bson.A
	if username != "" {
		or = append(or, bson.D{{Key: "username", Value: username}})
	}
	if email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}

	if len(or) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var out userDoc
	if err := m.users.FindOne(ctx, bson.D{{Key: "$or", Value: or}}).Decode(&out); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out.toModel(), nil
}

// SetRefreshToken безусловно перезаписывает хэш refresh-токена:
// новый login делает недействительной любую предыдущую сессию.
func (m *Mongo) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	const op = "storage/mongo/SetRefreshToken"

	oid, err := oidFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := m.users.UpdateByID(ctx, oid, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "refresh_token", Value: tokenHash},
			{Key: "updated_at", Value: toMS(time.Now())},
		}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RotateRefreshToken — compare-and-set: заменяет oldHash на newHash одним
// атомарным обновлением документа. Возвращает false, если текущее значение
// уже не oldHash — конкурентная ротация победила, вызывающий должен
// трактовать это как повторное использование токена.
func (m *Mongo) RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	const op = "storage/mongo/RotateRefreshToken"

	oid, err := oidFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "refresh_token", Value: oldHash},
	}

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "refresh_token", Value: newHash},
			{Key: "updated_at", Value: toMS(time.Now())},
		}},
	}

	var out userDoc
	err = m.users.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)

	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			// Либо пользователь исчез, либо хэш не совпал — ротация не состоялась.
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// ClearRefreshToken снимает refresh-токен ($unset). Идемпотентна:
// отсутствие поля не считается ошибкой.
func (m *Mongo) ClearRefreshToken(ctx context.Context, id string) error {
	const op = "storage/mongo/ClearRefreshToken"

	oid, err := oidFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := m.users.UpdateByID(ctx, oid, bson.D{
		{Key: "$unset", Value: bson.D{{Key: "refresh_token", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: toMS(time.Now())}}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdatePassword заменяет bcrypt-хэш пароля.
func (m *Mongo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const op = "storage/mongo/UpdatePassword"

	oid, err := oidFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := m.users.UpdateByID(ctx, oid, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "updated_at", Value: toMS(time.Now())},
		}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdateAccount выполняет частичный $set полей аккаунта и возвращает
// обновлённый документ. Конфликт уникальности email — storage.ErrAlreadyExists.
func (m *Mongo) UpdateAccount(ctx context.Context, id string, upd storage.AccountUpdate) (*models.User, error) {
	const op = "storage/mongo/UpdateAccount"

	oid, err := oidFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	set := bson.D{{Key: "updated_at", Value: toMS(time.Now())}}
	if upd.FullName != nil {
		set = append(set, bson.E{Key: "full_name", Value: *upd.FullName})
	}
	if upd.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *upd.Email})
	}

	var out userDoc
	err = m.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)

	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out.toModel(), nil
}

// UpdateAvatarURL заменяет URL аватара.
func (m *Mongo) UpdateAvatarURL(ctx context.Context, id, url string) (*models.User, error) {
	const op = "storage/mongo/UpdateAvatarURL"

	user, err := m.updateImageField(ctx, id, "avatar_url", url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateCoverImageURL заменяет URL обложки.
func (m *Mongo) UpdateCoverImageURL(ctx context.Context, id, url string) (*models.User, error) {
	const op = "storage/mongo/UpdateCoverImageURL"

	user, err := m.updateImageField(ctx, id, "cover_image_url", url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (m *Mongo) updateImageField(ctx context.Context, id, field, url string) (*models.User, error) {
	oid, err := oidFromHex(id)
	if err != nil {
		return nil, err
	}

	var out userDoc
	err = m.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: field, Value: url},
			{Key: "updated_at", Value: toMS(time.Now())},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)

	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return out.toModel(), nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Storage = (*Mongo)(nil)
