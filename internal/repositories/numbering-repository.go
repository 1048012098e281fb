package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type NumberingRepositoryInterface interface {
	NextSequenceInTx(ctx context.Context, tx pgx.Tx, scope string) (int64, error)
}

// NumberingRepository выдаёт последовательные номера через таблицу счётчиков.
// Инкремент атомарен (upsert в той же транзакции, что и вставка записи),
// поэтому параллельные создания не могут получить одинаковый номер.
type NumberingRepository struct{}

func NewNumberingRepository() NumberingRepositoryInterface {
	return &NumberingRepository{}
}

func (r *NumberingRepository) NextSequenceInTx(ctx context.Context, tx pgx.Tx, scope string) (int64, error) {
	var value int64
	err := tx.QueryRow(ctx, `
		INSERT INTO number_counters (scope, value) VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET value = number_counters.value + 1
		RETURNING value`, scope).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения номера для %q: %w", scope, err)
	}
	return value, nil
}
