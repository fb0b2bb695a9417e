package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword хэширует пароль с помощью bcrypt.
// Соль генерируется на каждый вызов, поэтому один и тот же пароль
// даёт разные хэши, и все они проходят проверку.
func hashPassword(password string) (string, error) {
	const op = "service/password/hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
// Любая ошибка (включая битый хэш) трактуется как несовпадение —
// проверка закрывается, а не падает.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validatePassword проверяет минимальные требования к паролю:
// непустой и длина >= 8 рун.
func validatePassword(pw string) error {
	const op = "service/password/validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	return nil
}
