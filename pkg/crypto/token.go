package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Хеширование токена доступа к ops API.
//
// Сам токен в конфигурации не хранится - только bcrypt-хеш.
// Процесс, получивший env бота, не получает автоматически
// доступ к управляющему API.

// Ошибки
var (
	ErrEmptyToken    = errors.New("token cannot be empty")
	ErrTokenMismatch = errors.New("token does not match hash")
	ErrTokenTooLong  = errors.New("token exceeds maximum length of 72 bytes")
)

// DefaultCost стоимость bcrypt по умолчанию
const DefaultCost = 12

// MaxTokenLength ограничение bcrypt на длину входа
const MaxTokenLength = 72

// HashToken хеширует токен с использованием bcrypt
func HashToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	if len(token) > MaxTokenLength {
		return "", ErrTokenTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyToken проверяет токен против bcrypt-хеша
func VerifyToken(token, hash string) error {
	if token == "" {
		return ErrEmptyToken
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrTokenMismatch
		}
		return err
	}
	return nil
}
