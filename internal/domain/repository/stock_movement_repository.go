package repository

import (
	"context"
	"time"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia del kardex (DIP).
// El almacén es append-only: los movimientos nunca se actualizan ni borran.
type StockMovementRepository interface {
	// Create persiste el movimiento y asigna Seq (orden total de inserción).
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)

	// ListByProduct lista movimientos de un producto ordenados por
	// (created_at, seq) ascendente, con ventana de tiempo opcional.
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)

	// ListByBatch devuelve los movimientos de una entrada masiva en orden de fila.
	ListByBatch(ctx context.Context, batchID string) ([]*entity.StockMovement, error)

	// SumDeltas pliega la historia completa del producto (suma con signo).
	SumDeltas(ctx context.Context, productID string) (int64, error)
	// SumDeltasUntil pliega la historia con created_at <= t.
	SumDeltasUntil(ctx context.Context, productID string, t time.Time) (int64, error)
	// SumDeltasBefore pliega la historia con created_at < t (saldo de apertura de una ventana).
	SumDeltasBefore(ctx context.Context, productID string, t time.Time) (int64, error)
}
