package kardex

import (
	"context"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del almacén,
// pasando repositorios atados a esa transacción. Garantiza atomicidad para
// el motor de kardex: o se persisten todos los movimientos del lote y el
// saldo materializado, o ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		batchRepo repository.BulkEntryRepository,
	) error) error
}
