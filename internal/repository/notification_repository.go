package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"deltarb/internal/models"
)

// NotificationRepository - работа с журналом событий
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создает запись журнала
func (r *NotificationRepository) Create(n *models.Notification) error {
	if n.Type == "" {
		return ErrInvalidData
	}

	var meta []byte
	if n.Meta != nil {
		var err error
		meta, err = json.Marshal(n.Meta)
		if err != nil {
			return ErrInvalidData
		}
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	query := `
		INSERT INTO notifications (timestamp, type, severity, position_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(
		query,
		n.Timestamp,
		n.Type,
		n.Severity,
		n.PositionID,
		n.Message,
		meta,
	).Scan(&n.ID)

	return classify(err)
}

// GetRecent возвращает последние limit записей
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, position_id, message, meta
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetByTypes возвращает последние записи заданных типов
func (r *NotificationRepository) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, position_id, message, meta
		FROM notifications
		WHERE type = ANY($1)
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, pq.Array(types), limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// DeleteOlderThan удаляет записи старше заданного момента
func (r *NotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, classify(err)
	}

	return result.RowsAffected()
}

func scanNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var positionID sql.NullString
		var meta []byte

		err := rows.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &positionID, &n.Message, &meta)
		if err != nil {
			return nil, ErrInvalidData
		}

		if positionID.Valid {
			n.PositionID = &positionID.String
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &n.Meta); err != nil {
				return nil, ErrInvalidData
			}
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return notifications, nil
}
