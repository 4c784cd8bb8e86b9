package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deltarb/internal/models"
	"deltarb/pkg/crypto"
)

// AccountRepository - работа с таблицей venue_accounts.
// API ключи хранятся зашифрованными AES-256-GCM.
type AccountRepository struct {
	db            *sql.DB
	encryptionKey []byte
}

// NewAccountRepository создает новый экземпляр репозитория
func NewAccountRepository(db *sql.DB, encryptionKey []byte) *AccountRepository {
	return &AccountRepository{db: db, encryptionKey: encryptionKey}
}

// Create создает аккаунт площадки, шифруя ключи перед записью
func (r *AccountRepository) Create(acc *models.VenueAccount) error {
	if acc.Name == "" {
		return ErrInvalidData
	}

	encKey, err := crypto.Encrypt(acc.APIKey, r.encryptionKey)
	if err != nil {
		return fmt.Errorf("encrypt api key: %w", err)
	}
	encSecret, err := crypto.Encrypt(acc.SecretKey, r.encryptionKey)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}

	query := `
		INSERT INTO venue_accounts (name, api_key, secret_key, connected, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	now := time.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	err = r.db.QueryRow(
		query,
		acc.Name,
		encKey,
		encSecret,
		acc.Connected,
		acc.Balance,
		acc.CreatedAt,
		acc.UpdatedAt,
	).Scan(&acc.ID)

	return classify(err)
}

// GetByName возвращает аккаунт по имени площадки с расшифрованными ключами
func (r *AccountRepository) GetByName(name string) (*models.VenueAccount, error) {
	query := `
		SELECT id, name, api_key, secret_key, connected, balance, last_error, created_at, updated_at
		FROM venue_accounts
		WHERE name = $1`

	acc := &models.VenueAccount{}
	var encKey, encSecret string
	var lastError sql.NullString

	err := r.db.QueryRow(query, name).Scan(
		&acc.ID,
		&acc.Name,
		&encKey,
		&encSecret,
		&acc.Connected,
		&acc.Balance,
		&lastError,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}

	acc.LastError = lastError.String

	if acc.APIKey, err = crypto.Decrypt(encKey, r.encryptionKey); err != nil {
		return nil, fmt.Errorf("decrypt api key: %w", errors.Join(ErrInvalidData, err))
	}
	if acc.SecretKey, err = crypto.Decrypt(encSecret, r.encryptionKey); err != nil {
		return nil, fmt.Errorf("decrypt secret: %w", errors.Join(ErrInvalidData, err))
	}

	return acc, nil
}

// UpdateBalance обновляет баланс и состояние соединения
func (r *AccountRepository) UpdateBalance(name string, balance float64, connected bool, lastError string) error {
	query := `
		UPDATE venue_accounts
		SET balance = $1, connected = $2, last_error = $3, updated_at = $4
		WHERE name = $5`

	result, err := r.db.Exec(query, balance, connected, lastError, time.Now(), name)
	if err != nil {
		return classify(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
