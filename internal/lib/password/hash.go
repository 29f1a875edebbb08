// Package password хеширует и проверяет пароли учётных записей клиентов и сотрудников.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinLength минимальная длина пароля для регистрации и заведения сотрудника.
const MinLength = 8

// maxBytes bcrypt учитывает только первые 72 байта.
const maxBytes = 72

var (
	ErrTooShort = errors.New("password is too short")
	ErrTooLong  = errors.New("password is longer than 72 bytes")
	ErrMismatch = errors.New("password does not match")
)

// Hash проверяет длину пароля и возвращает bcrypt-хеш для таблицы identities.
func Hash(raw string) (string, error) {
	const op = "password.Hash"

	switch {
	case len([]rune(raw)) < MinLength:
		return "", fmt.Errorf("%s: %w", op, ErrTooShort)
	case len(raw) > maxBytes:
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сравнивает введённый при входе пароль с сохранённым хешем.
// Несовпадение возвращается как ErrMismatch.
func Verify(hash, raw string) error {
	const op = "password.Verify"

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
