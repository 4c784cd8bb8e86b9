package repository

import (
	"database/sql"
	"errors"
	"time"

	"deltarb/internal/models"
)

// PositionRepository - работа с таблицей positions
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository создает новый экземпляр репозитория
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

const positionColumns = `id, long_exchange, long_symbol, short_exchange, short_symbol,
		long_entry_price, short_entry_price, size, remaining_size, status,
		detected_spread, captured_spread, slippage_bps, direction,
		detected_at_ms, long_filled_at_ms, short_filled_at_ms, verified_at_ms,
		created_at, updated_at, closed_at`

// Save сохраняет новую позицию
func (r *PositionRepository) Save(p *models.PositionState) error {
	if p.ID == "" || p.LongSymbol == "" || p.ShortSymbol == "" {
		return ErrInvalidData
	}
	if p.RemainingSize < 0 {
		return ErrInvalidData
	}

	query := `
		INSERT INTO positions (id, long_exchange, long_symbol, short_exchange, short_symbol,
			long_entry_price, short_entry_price, size, remaining_size, status,
			detected_spread, captured_spread, slippage_bps, direction,
			detected_at_ms, long_filled_at_ms, short_filled_at_ms, verified_at_ms,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		query,
		p.ID,
		p.LongExchange,
		p.LongSymbol,
		p.ShortExchange,
		p.ShortSymbol,
		p.LongEntryPrice,
		p.ShortEntryPrice,
		p.Size,
		p.RemainingSize,
		p.Status,
		p.DetectedSpread,
		p.CapturedSpread,
		p.SlippageBps,
		string(p.Direction),
		p.DetectedAtMs,
		p.LongFilledAtMs,
		p.ShortFilledAtMs,
		p.VerifiedAtMs,
		p.CreatedAt,
		p.UpdatedAt,
	)

	return classify(err)
}

// LoadAll возвращает все незакрытые позиции
func (r *PositionRepository) LoadAll() ([]*models.PositionState, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status != $1
		ORDER BY created_at`

	rows, err := r.db.Query(query, models.PositionStatusClosed)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var positions []*models.PositionState
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, ErrInvalidData
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return positions, nil
}

// GetByNaturalKey возвращает незакрытую позицию по естественному ключу
func (r *PositionRepository) GetByNaturalKey(longSymbol, shortSymbol string) (*models.PositionState, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE long_symbol = $1 AND short_symbol = $2 AND status != $3`

	row := r.db.QueryRow(query, longSymbol, shortSymbol, models.PositionStatusClosed)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}

	return p, nil
}

// Update обновляет изменяемые поля позиции
func (r *PositionRepository) Update(p *models.PositionState) error {
	if p.ID == "" {
		return ErrInvalidData
	}
	if p.RemainingSize < 0 {
		return ErrInvalidData
	}

	query := `
		UPDATE positions
		SET remaining_size = $1, status = $2, captured_spread = $3, slippage_bps = $4,
			verified_at_ms = $5, updated_at = $6, closed_at = $7
		WHERE id = $8`

	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		query,
		p.RemainingSize,
		p.Status,
		p.CapturedSpread,
		p.SlippageBps,
		p.VerifiedAtMs,
		p.UpdatedAt,
		p.ClosedAt,
		p.ID,
	)
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

// Remove удаляет позицию по id
func (r *PositionRepository) Remove(id string) error {
	result, err := r.db.Exec(`DELETE FROM positions WHERE id = $1`, id)
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

// scanner объединяет *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(s scanner) (*models.PositionState, error) {
	p := &models.PositionState{}
	var direction string

	err := s.Scan(
		&p.ID,
		&p.LongExchange,
		&p.LongSymbol,
		&p.ShortExchange,
		&p.ShortSymbol,
		&p.LongEntryPrice,
		&p.ShortEntryPrice,
		&p.Size,
		&p.RemainingSize,
		&p.Status,
		&p.DetectedSpread,
		&p.CapturedSpread,
		&p.SlippageBps,
		&direction,
		&p.DetectedAtMs,
		&p.LongFilledAtMs,
		&p.ShortFilledAtMs,
		&p.VerifiedAtMs,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Direction = models.Direction(direction)
	return p, nil
}
