package models

import "time"

// VenueAccount представляет аккаунт площадки с API ключами
type VenueAccount struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"` // hyperliquid, paradex, paper
	APIKey    string    `json:"-" db:"api_key"` // зашифрован, не возвращается в JSON
	SecretKey string    `json:"-" db:"secret_key"`
	Connected bool      `json:"connected" db:"connected"`
	Balance   float64   `json:"balance" db:"balance"` // equity в USD
	LastError string    `json:"last_error,omitempty" db:"last_error"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
