package repository

import (
	"context"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
)

// BulkEntryRepository registra entradas masivas aplicadas, indexadas por su
// clave de idempotencia. Es la base del reintento seguro: si la clave ya
// existe, el lote ya fue aplicado y no debe repetirse.
type BulkEntryRepository interface {
	// Create persiste el registro del lote. Retorna domain.ErrDuplicate si
	// ya existe un lote con la misma clave de idempotencia.
	Create(ctx context.Context, entry *entity.BulkEntryRecord) error

	// GetByKey busca un lote por clave de idempotencia.
	// Retorna domain.ErrNotFound si no existe.
	GetByKey(ctx context.Context, idempotencyKey string) (*entity.BulkEntryRecord, error)
}
