package memory

import (
	"context"
	"time"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

var (
	_ repository.StockMovementRepository = (*StockMovementRepo)(nil)
	_ repository.ProductRepository       = (*ProductRepo)(nil)
	_ repository.BulkEntryRepository     = (*BulkEntryRepo)(nil)
)

// StockMovementRepo adaptador de movimientos sobre el estado confirmado.
type StockMovementRepo struct {
	s *Store
}

// NewStockMovementRepository construye el adaptador de movimientos.
func NewStockMovementRepository(s *Store) *StockMovementRepo {
	return &StockMovementRepo{s: s}
}

func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	r.s.appendMovement(movement)
	return nil
}

func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.movs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.s.listByProduct(productID, from, to, limit, offset), nil
}

func (r *StockMovementRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.StockMovement, error) {
	return r.s.listByBatch(batchID), nil
}

func (r *StockMovementRepo) SumDeltas(ctx context.Context, productID string) (int64, error) {
	return r.s.sumDeltas(productID, nil, false), nil
}

func (r *StockMovementRepo) SumDeltasUntil(ctx context.Context, productID string, t time.Time) (int64, error) {
	return r.s.sumDeltas(productID, &t, true), nil
}

func (r *StockMovementRepo) SumDeltasBefore(ctx context.Context, productID string, t time.Time) (int64, error) {
	return r.s.sumDeltas(productID, &t, false), nil
}

// ProductRepo adaptador de productos sobre el estado confirmado. Las
// lecturas no toman el bloqueo por producto: toleran observar un saldo que
// está siendo actualizado.
type ProductRepo struct {
	s *Store
}

// NewProductRepository construye el adaptador de productos.
func NewProductRepository(s *Store) *ProductRepo {
	return &ProductRepo{s: s}
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.s.getProduct(id), nil
}

// GetBalanceForUpdate fuera de transacción no retiene bloqueo; los appends
// reales pasan por TxRunner.Run, que sí lo retiene hasta el commit.
func (r *ProductRepo) GetBalanceForUpdate(ctx context.Context, productID string) (int64, error) {
	p := r.s.getProduct(productID)
	if p == nil {
		return 0, domain.ErrProductNotFound
	}
	if p.Stock == nil {
		return 0, nil
	}
	return *p.Stock, nil
}

func (r *ProductRepo) UpdateBalance(ctx context.Context, productID string, balance int64) error {
	return r.s.setBalance(productID, balance)
}

// BulkEntryRepo adaptador de registros de lote sobre el estado confirmado.
type BulkEntryRepo struct {
	s *Store
}

// NewBulkEntryRepository construye el adaptador de lotes.
func NewBulkEntryRepository(s *Store) *BulkEntryRepo {
	return &BulkEntryRepo{s: s}
}

func (r *BulkEntryRepo) Create(ctx context.Context, entry *entity.BulkEntryRecord) error {
	return r.s.createBatchRecord(entry)
}

func (r *BulkEntryRepo) GetByKey(ctx context.Context, idempotencyKey string) (*entity.BulkEntryRecord, error) {
	rec := r.s.getBatchByKey(idempotencyKey)
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}
