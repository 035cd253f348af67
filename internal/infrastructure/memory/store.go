// Package memory implementa los puertos del kardex sobre estructuras en
// memoria. Se usa en tests y en modo development sin base de datos; ofrece
// las mismas garantías del adaptador PostgreSQL: exclusión por producto en
// los appends y commit/rollback todo-o-nada.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
)

type productState struct {
	mu      sync.Mutex // exclusión por producto: read → validate → write
	product entity.Product
}

// Store estado compartido del almacén en memoria. Los adaptadores de
// repositorio (repos.go) leen el estado confirmado sin tomar los bloqueos
// por producto; TxRunner (tx_runner.go) escribe bajo esos bloqueos.
type Store struct {
	mu       sync.RWMutex
	products map[string]*productState
	movs     []*entity.StockMovement
	byBatch  map[string][]*entity.StockMovement
	batches  map[string]*entity.BulkEntryRecord // por clave de idempotencia
	nextSeq  int64
}

// NewStore construye el almacén vacío.
func NewStore() *Store {
	return &Store{
		products: make(map[string]*productState),
		byBatch:  make(map[string][]*entity.StockMovement),
		batches:  make(map[string]*entity.BulkEntryRecord),
	}
}

// SeedProduct registra un producto con saldo inicial (el CRUD de productos
// es un colaborador externo; aquí solo se siembra la referencia). El saldo
// inicial se representa como movimiento de apertura ADJUSTMENT_IN: la caché
// nunca puede contener unidades que la historia no justifique, o el pliegue
// (RecomputeBalance, BalanceAsOf) divergería de ella.
func (s *Store) SeedProduct(id, sku, name string, stock int64) {
	now := time.Now().UTC()
	s.mu.Lock()
	balance := stock
	s.products[id] = &productState{product: entity.Product{
		ID:        id,
		SKU:       sku,
		Name:      name,
		Stock:     &balance,
		UpdatedAt: now,
	}}
	s.mu.Unlock()

	if stock > 0 {
		s.appendMovement(&entity.StockMovement{
			ID:        uuid.New().String(),
			ProductID: id,
			Type:      entity.MovementAdjustmentIn,
			Quantity:  stock,
			Notes:     "saldo inicial",
			CreatedAt: now,
		})
	}
}

// ── helpers de estado confirmado ─────────────────────────────────────────────

func (s *Store) getProduct(id string) *entity.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.products[id]
	if !ok {
		return nil
	}
	p := st.product
	if st.product.Stock != nil {
		balance := *st.product.Stock
		p.Stock = &balance
	}
	return &p
}

func (s *Store) setBalance(productID string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	b := balance
	st.product.Stock = &b
	st.product.UpdatedAt = time.Now().UTC()
	return nil
}

// appendMovement persiste el movimiento confirmado y asigna Seq.
func (s *Store) appendMovement(movement *entity.StockMovement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	movement.Seq = s.nextSeq
	cp := *movement
	s.movs = append(s.movs, &cp)
	if cp.BatchID != "" {
		s.byBatch[cp.BatchID] = append(s.byBatch[cp.BatchID], &cp)
	}
}

func (s *Store) listByProduct(productID string, from, to *time.Time, limit, offset int) []*entity.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var window []*entity.StockMovement
	for _, m := range s.movs {
		if m.ProductID != productID {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && m.CreatedAt.After(*to) {
			continue
		}
		window = append(window, m)
	}
	// Orden (created_at, seq) ascendente: desempate determinista
	sort.SliceStable(window, func(i, j int) bool {
		if !window[i].CreatedAt.Equal(window[j].CreatedAt) {
			return window[i].CreatedAt.Before(window[j].CreatedAt)
		}
		return window[i].Seq < window[j].Seq
	})
	if offset >= len(window) {
		return nil
	}
	window = window[offset:]
	if limit > 0 && len(window) > limit {
		window = window[:limit]
	}
	out := make([]*entity.StockMovement, len(window))
	for i, m := range window {
		cp := *m
		out[i] = &cp
	}
	return out
}

func (s *Store) listByBatch(batchID string) []*entity.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movs := s.byBatch[batchID]
	out := make([]*entity.StockMovement, len(movs))
	for i, m := range movs {
		cp := *m
		out[i] = &cp
	}
	return out
}

func (s *Store) sumDeltas(productID string, until *time.Time, inclusive bool) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, m := range s.movs {
		if m.ProductID != productID {
			continue
		}
		if until != nil {
			if inclusive && m.CreatedAt.After(*until) {
				continue
			}
			if !inclusive && !m.CreatedAt.Before(*until) {
				continue
			}
		}
		total += m.Delta()
	}
	return total
}

func (s *Store) createBatchRecord(entry *entity.BulkEntryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[entry.IdempotencyKey]; exists {
		return domain.ErrDuplicate
	}
	cp := *entry
	s.batches[entry.IdempotencyKey] = &cp
	return nil
}

func (s *Store) getBatchByKey(idempotencyKey string) *entity.BulkEntryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.batches[idempotencyKey]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}
