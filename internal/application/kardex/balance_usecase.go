package kardex

import (
	"context"
	"time"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

// BalanceQueryUseCase responde "stock actual" y "stock a la fecha T".
// Son lecturas sin bloqueo: no participan en la exclusión mutua del motor y
// toleran observar un saldo que está siendo actualizado concurrentemente.
// Quien necesite un saldo exacto a un instante debe usar BalanceAsOf con un
// timestamp fijo, no CurrentBalance.
type BalanceQueryUseCase struct {
	productRepo repository.ProductRepository
	movRepo     repository.StockMovementRepository
}

// NewBalanceQueryUseCase construye el servicio de consulta de saldos.
func NewBalanceQueryUseCase(
	productRepo repository.ProductRepository,
	movRepo repository.StockMovementRepository,
) *BalanceQueryUseCase {
	return &BalanceQueryUseCase{productRepo: productRepo, movRepo: movRepo}
}

// CurrentBalance devuelve el saldo materializado si existe; si la caché no
// es confiable (producto sin saldo materializado) cae al pliegue de la
// historia completa.
func (uc *BalanceQueryUseCase) CurrentBalance(ctx context.Context, productID string) (int64, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	if product == nil {
		return 0, domain.ErrProductNotFound
	}
	if product.Stock != nil {
		return *product.Stock, nil
	}
	return uc.movRepo.SumDeltas(ctx, productID)
}

// BalanceAsOf pliega la historia con created_at <= t. Nunca se sirve desde
// la caché: la caché solo refleja el presente. Un timestamp anterior a todo
// movimiento devuelve 0 para cualquier producto.
func (uc *BalanceQueryUseCase) BalanceAsOf(ctx context.Context, productID string, t time.Time) (int64, error) {
	return uc.movRepo.SumDeltasUntil(ctx, productID, t)
}
