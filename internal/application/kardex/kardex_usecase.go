package kardex

import (
	"context"
	"time"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
	kardexdom "github.com/jfloresavalos/Nelaglow-sub001/internal/domain/kardex"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

// KardexViewUseCase materializa la proyección kardex: los movimientos de un
// producto en una ventana de tiempo, cada uno con su saldo acumulado. Vista
// derivada pura: se recalcula en cada llamada, nunca es fuente de verdad
// independiente.
type KardexViewUseCase struct {
	movRepo repository.StockMovementRepository
}

// NewKardexViewUseCase construye la proyección de lectura.
func NewKardexViewUseCase(movRepo repository.StockMovementRepository) *KardexViewUseCase {
	return &KardexViewUseCase{movRepo: movRepo}
}

// View devuelve las filas kardex del producto en la ventana [from, to],
// ordenadas por (created_at, seq) ascendente: los empates de timestamp se
// resuelven por orden de inserción para que la proyección sea determinista.
// El saldo acumulado arranca del saldo inmediatamente anterior a la ventana
// (0 si la ventana empieza al inicio de la historia). limit y offset paginan
// sobre las filas de la ventana sin romper la suma de prefijos.
func (uc *KardexViewUseCase) View(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]entity.KardexRow, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var opening int64
	if from != nil {
		before, err := uc.movRepo.SumDeltasBefore(ctx, productID, *from)
		if err != nil {
			return nil, err
		}
		opening = before
	}

	// Se traen también las filas saltadas por offset: sus deltas forman parte
	// del saldo de apertura de la página pedida.
	movs, err := uc.movRepo.ListByProduct(ctx, productID, from, to, offset+limit, 0)
	if err != nil {
		return nil, err
	}
	rows := kardexdom.RunningBalances(opening, movs)
	if offset >= len(rows) {
		return []entity.KardexRow{}, nil
	}
	return rows[offset:], nil
}
