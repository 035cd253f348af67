package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

var _ repository.BulkEntryRepository = (*BulkEntryRepo)(nil)

// BulkEntryRepo registros de entradas masivas sobre PostgreSQL (usable con
// pool o tx). El índice único sobre idempotency_key es lo que hace seguros
// los reintentos: el segundo insert con la misma clave falla y el motor
// responde con el lote ya aplicado.
type BulkEntryRepo struct {
	q Querier
}

// NewBulkEntryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBulkEntryRepository(q Querier) *BulkEntryRepo {
	return &BulkEntryRepo{q: q}
}

// Create persiste el registro del lote; domain.ErrDuplicate si la clave ya existe.
func (r *BulkEntryRepo) Create(ctx context.Context, entry *entity.BulkEntryRecord) error {
	query := `
		INSERT INTO bulk_entries (id, idempotency_key, row_count, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5)`
	createdBy := (*string)(nil)
	if entry.CreatedBy != "" {
		createdBy = &entry.CreatedBy
	}
	_, err := r.q.Exec(ctx, query,
		entry.ID, entry.IdempotencyKey, entry.Rows, entry.CreatedAt, createdBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create bulk entry: %w", err)
	}
	return nil
}

// GetByKey busca un lote por clave de idempotencia.
func (r *BulkEntryRepo) GetByKey(ctx context.Context, idempotencyKey string) (*entity.BulkEntryRecord, error) {
	query := `
		SELECT id, idempotency_key, row_count, created_at, created_by
		FROM bulk_entries WHERE idempotency_key = $1`
	var e entity.BulkEntryRecord
	var createdBy *string
	err := r.q.QueryRow(ctx, query, idempotencyKey).Scan(
		&e.ID, &e.IdempotencyKey, &e.Rows, &e.CreatedAt, &createdBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get bulk entry: %w", err)
	}
	if createdBy != nil {
		e.CreatedBy = *createdBy
	}
	return &e, nil
}
