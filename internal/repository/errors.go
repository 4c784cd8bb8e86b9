package repository

import (
	"database/sql"
	"errors"
	"net"

	"github.com/lib/pq"
)

// Классы ошибок хранилища. Вызывающий код различает
// "не найдено", "некорректные данные" и "хранилище недоступно":
// последнее не фатально, реестр продолжает работать в памяти.
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidData        = errors.New("invalid data")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// classify приводит ошибку драйвера к одному из классов хранилища
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return errors.Join(ErrStorageUnavailable, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return errors.Join(ErrStorageUnavailable, err)
	}

	// Классы 08 (connection exception) и 57 (operator intervention)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		if class == "08" || class == "57" {
			return errors.Join(ErrStorageUnavailable, err)
		}
	}

	return err
}

// IsUnavailable сообщает, что операция не удалась из-за недоступности хранилища
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
