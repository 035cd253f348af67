package memory

import (
	"context"
	"time"

	kardexapp "github.com/jfloresavalos/Nelaglow-sub001/internal/application/kardex"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

var _ kardexapp.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks con semántica transaccional sobre el Store:
// GetBalanceForUpdate toma el mutex del producto y lo retiene hasta el final
// de la transacción (equivalente en memoria del SELECT FOR UPDATE); las
// escrituras quedan en staging y se aplican todas juntas en el commit, o se
// descartan si el callback falla.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el almacén.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn con repos atados a la transacción y hace commit o rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	batchRepo repository.BulkEntryRepository,
) error) error {
	tx := &memTx{
		s:        r.s,
		locked:   make(map[string]*productState),
		balances: make(map[string]int64),
	}
	defer tx.release()

	if err := fn(&txMovementRepo{tx}, &txProductRepo{tx}, &txBatchRepo{tx}); err != nil {
		return err
	}
	return tx.commit()
}

// memTx transacción en curso: bloqueos retenidos y escrituras en staging.
type memTx struct {
	s         *Store
	lockOrder []string
	locked    map[string]*productState
	balances  map[string]int64
	movs      []*entity.StockMovement
	batch     *entity.BulkEntryRecord
}

// lock toma el mutex del producto si esta transacción aún no lo retiene.
func (tx *memTx) lock(productID string) (*productState, error) {
	if st, held := tx.locked[productID]; held {
		return st, nil
	}
	tx.s.mu.RLock()
	st, ok := tx.s.products[productID]
	tx.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	st.mu.Lock()
	tx.locked[productID] = st
	tx.lockOrder = append(tx.lockOrder, productID)
	return st, nil
}

// commit aplica movimientos, saldos y registro de lote en una sola sección
// crítica del Store. La clave de idempotencia se revalida aquí: si otro lote
// la ganó, no se aplica nada.
func (tx *memTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.batch != nil {
		if _, exists := s.batches[tx.batch.IdempotencyKey]; exists {
			return domain.ErrDuplicate
		}
	}
	for _, m := range tx.movs {
		s.nextSeq++
		m.Seq = s.nextSeq
		cp := *m
		s.movs = append(s.movs, &cp)
		if cp.BatchID != "" {
			s.byBatch[cp.BatchID] = append(s.byBatch[cp.BatchID], &cp)
		}
	}
	now := time.Now().UTC()
	for pid, balance := range tx.balances {
		st, ok := s.products[pid]
		if !ok {
			return domain.ErrProductNotFound
		}
		b := balance
		st.product.Stock = &b
		st.product.UpdatedAt = now
	}
	if tx.batch != nil {
		cp := *tx.batch
		s.batches[cp.IdempotencyKey] = &cp
	}
	return nil
}

// release suelta los bloqueos por producto en orden inverso de adquisición.
func (tx *memTx) release() {
	for i := len(tx.lockOrder) - 1; i >= 0; i-- {
		tx.locked[tx.lockOrder[i]].mu.Unlock()
	}
	tx.lockOrder = nil
	tx.locked = nil
}

// ── repos atados a la transacción ────────────────────────────────────────────

type txProductRepo struct{ tx *memTx }

func (r *txProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.tx.s.getProduct(id), nil
}

func (r *txProductRepo) GetBalanceForUpdate(ctx context.Context, productID string) (int64, error) {
	st, err := r.tx.lock(productID)
	if err != nil {
		return 0, err
	}
	if staged, ok := r.tx.balances[productID]; ok {
		return staged, nil
	}
	if st.product.Stock == nil {
		return 0, nil
	}
	return *st.product.Stock, nil
}

func (r *txProductRepo) UpdateBalance(ctx context.Context, productID string, balance int64) error {
	if _, err := r.tx.lock(productID); err != nil {
		return err
	}
	r.tx.balances[productID] = balance
	return nil
}

type txMovementRepo struct{ tx *memTx }

func (r *txMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	// Se retiene el puntero del caller: Seq se asigna en el commit
	r.tx.movs = append(r.tx.movs, movement)
	return nil
}

func (r *txMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	return NewStockMovementRepository(r.tx.s).GetByID(ctx, id)
}

func (r *txMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.tx.s.listByProduct(productID, from, to, limit, offset), nil
}

func (r *txMovementRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.StockMovement, error) {
	return r.tx.s.listByBatch(batchID), nil
}

func (r *txMovementRepo) SumDeltas(ctx context.Context, productID string) (int64, error) {
	return r.tx.s.sumDeltas(productID, nil, false), nil
}

func (r *txMovementRepo) SumDeltasUntil(ctx context.Context, productID string, t time.Time) (int64, error) {
	return r.tx.s.sumDeltas(productID, &t, true), nil
}

func (r *txMovementRepo) SumDeltasBefore(ctx context.Context, productID string, t time.Time) (int64, error) {
	return r.tx.s.sumDeltas(productID, &t, false), nil
}

type txBatchRepo struct{ tx *memTx }

func (r *txBatchRepo) Create(ctx context.Context, entry *entity.BulkEntryRecord) error {
	if r.tx.s.getBatchByKey(entry.IdempotencyKey) != nil {
		return domain.ErrDuplicate
	}
	r.tx.batch = entry
	return nil
}

func (r *txBatchRepo) GetByKey(ctx context.Context, idempotencyKey string) (*entity.BulkEntryRecord, error) {
	rec := r.tx.s.getBatchByKey(idempotencyKey)
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}
