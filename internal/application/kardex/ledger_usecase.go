package kardex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
	kardexdom "github.com/jfloresavalos/Nelaglow-sub001/internal/domain/kardex"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

// LedgerUseCase es el único componente autorizado a anexar movimientos de
// kardex y actualizar el saldo materializado. La serializabilidad por
// producto se logra con bloqueo de fila en el almacén (SELECT FOR UPDATE
// sobre la fila del producto) dentro de la transacción del TxRunner:
// leer saldo → validar → escribir movimiento + saldo ocurre bajo ese
// bloqueo, por lo que dos appends concurrentes sobre el mismo producto
// nunca ven el mismo saldo previo. Appends sobre productos distintos
// avanzan en paralelo.
type LedgerUseCase struct {
	txRunner  TxRunner
	movRepo   repository.StockMovementRepository
	batchRepo repository.BulkEntryRepository
}

// NewLedgerUseCase construye el motor de kardex. movRepo y batchRepo se usan
// solo para lecturas fuera de transacción (replay idempotente).
func NewLedgerUseCase(
	txRunner TxRunner,
	movRepo repository.StockMovementRepository,
	batchRepo repository.BulkEntryRepository,
) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner:  txRunner,
		movRepo:   movRepo,
		batchRepo: batchRepo,
	}
}

// appendClock asegura timestamps estrictamente crecientes entre operaciones
// de append distintas dentro del mismo proceso. Las filas de un mismo lote
// comparten instante; el orden relativo lo preserva Seq. Con varias réplicas
// escribiendo sobre la misma base la monotonía entre procesos no está
// garantizada: ahí el orden total lo sigue dando (created_at, seq), que es
// lo que consumen la proyección y el pliegue.
var appendClock struct {
	mu   sync.Mutex
	last time.Time
}

func nextAppendTime() time.Time {
	appendClock.mu.Lock()
	defer appendClock.mu.Unlock()
	now := time.Now().UTC()
	if !now.After(appendClock.last) {
		now = appendClock.last.Add(time.Millisecond)
	}
	appendClock.last = now
	return now
}

// wrapStorage clasifica errores: los de dominio pasan tal cual; cualquier
// otra falla del almacén se reporta como ErrStorageUnavailable (transitoria,
// reintentrable por el caller con la misma clave de idempotencia).
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	var rowErr *domain.RowError
	switch {
	case errors.As(err, &rowErr),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrIdempotencyMismatch),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrNotFound):
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

// AppendMovement valida, verifica existencia del producto y saldo resultante
// no negativo, y persiste el movimiento junto con el saldo materializado en
// una sola transacción. Un movimiento de salida que dejaría saldo negativo
// se rechaza completo con ErrInsufficientStock, nunca se trunca.
func (uc *LedgerUseCase) AppendMovement(ctx context.Context, input kardexdom.MovementInput, userID string) (*entity.StockMovement, error) {
	mov, err := kardexdom.ValidateMovement(input)
	if err != nil {
		return nil, err
	}

	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		_ repository.BulkEntryRepository,
	) error {
		// Bloquea la fila del producto hasta el commit
		balance, err := productRepo.GetBalanceForUpdate(ctx, mov.ProductID)
		if err != nil {
			return err
		}
		newBalance := balance + mov.Delta()
		if newBalance < 0 {
			return domain.ErrInsufficientStock
		}
		mov.ID = uuid.New().String()
		mov.CreatedAt = nextAppendTime()
		mov.CreatedBy = userID
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		return productRepo.UpdateBalance(ctx, mov.ProductID, newBalance)
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return mov, nil
}

// AppendBulk aplica una entrada masiva como unidad atómica. Las filas se
// aplican en orden de lista contra un único saldo en evolución dentro de la
// transacción: la fila k ve el saldo ajustado por las filas 1..k-1. Si
// cualquier fila viola stock o referencia un producto inexistente, el lote
// completo se rechaza y nada se persiste. Reintentar con la misma clave de
// idempotencia devuelve los movimientos ya aplicados sin duplicar nada;
// reutilizarla con un lote distinto se rechaza (ErrIdempotencyMismatch).
func (uc *LedgerUseCase) AppendBulk(ctx context.Context, idempotencyKey string, rows []kardexdom.MovementInput, userID string) ([]*entity.StockMovement, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, domain.ErrMissingIdempotencyKey
	}
	movs, err := kardexdom.ValidateBulk(rows)
	if err != nil {
		return nil, err
	}

	// Replay idempotente antes de tocar ningún bloqueo
	if applied, err := uc.replay(ctx, idempotencyKey, len(movs)); err != nil {
		return nil, wrapStorage(err)
	} else if applied != nil {
		return applied, nil
	}

	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		batchRepo repository.BulkEntryRepository,
	) error {
		return uc.applyBatch(ctx, movRepo, productRepo, batchRepo, idempotencyKey, movs, userID)
	})
	if err != nil {
		// Carrera entre dos envíos con la misma clave: el otro ganó la
		// inserción del registro de lote; devolvemos lo que él aplicó.
		if errors.Is(err, domain.ErrDuplicate) {
			applied, rerr := uc.replay(ctx, idempotencyKey, len(movs))
			if rerr != nil {
				return nil, wrapStorage(rerr)
			}
			if applied != nil {
				return applied, nil
			}
		}
		return nil, wrapStorage(err)
	}
	return movs, nil
}

// replay devuelve los movimientos de un lote ya aplicado bajo la misma clave,
// o nil si la clave no se ha usado. Reutilizar la clave con un lote distinto
// (detectado por el conteo de filas) es un bug del caller y se rechaza con
// ErrIdempotencyMismatch en vez de devolver silenciosamente el lote original.
func (uc *LedgerUseCase) replay(ctx context.Context, idempotencyKey string, rows int) ([]*entity.StockMovement, error) {
	rec, err := uc.batchRepo.GetByKey(ctx, idempotencyKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if rec.Rows != rows {
		return nil, domain.ErrIdempotencyMismatch
	}
	return uc.movRepo.ListByBatch(ctx, rec.ID)
}

// applyBatch ejecuta el lote dentro de la transacción activa.
func (uc *LedgerUseCase) applyBatch(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	batchRepo repository.BulkEntryRepository,
	idempotencyKey string,
	movs []*entity.StockMovement,
	userID string,
) error {
	// Bloquear los productos involucrados en orden estable para no
	// interbloquear lotes concurrentes que los toquen en distinto orden.
	firstRow := make(map[string]int, len(movs))
	for i, m := range movs {
		if _, seen := firstRow[m.ProductID]; !seen {
			firstRow[m.ProductID] = i
		}
	}
	productIDs := make([]string, 0, len(firstRow))
	for pid := range firstRow {
		productIDs = append(productIDs, pid)
	}
	sort.Strings(productIDs)

	balances := make(map[string]int64, len(productIDs))
	for _, pid := range productIDs {
		balance, err := productRepo.GetBalanceForUpdate(ctx, pid)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return domain.NewRowError(firstRow[pid], err)
			}
			return err
		}
		balances[pid] = balance
	}

	now := nextAppendTime()
	batchID := uuid.New().String()

	for k, m := range movs {
		next := balances[m.ProductID] + m.Delta()
		if next < 0 {
			return domain.NewRowError(k, domain.ErrInsufficientStock)
		}
		balances[m.ProductID] = next

		m.ID = uuid.New().String()
		m.BatchID = batchID
		m.CreatedAt = now
		m.CreatedBy = userID
		if err := movRepo.Create(ctx, m); err != nil {
			return err
		}
	}

	for _, pid := range productIDs {
		if err := productRepo.UpdateBalance(ctx, pid, balances[pid]); err != nil {
			return err
		}
	}

	return batchRepo.Create(ctx, &entity.BulkEntryRecord{
		ID:             batchID,
		IdempotencyKey: idempotencyKey,
		Rows:           len(movs),
		CreatedAt:      now,
		CreatedBy:      userID,
	})
}

// RecomputeBalance pliega la historia completa del producto en orden
// (created_at, seq) y reescribe el saldo materializado. Operación de
// reparación bajo demanda: la historia es la fuente de verdad y la caché
// debe poder re-derivarse de ella en cualquier momento.
func (uc *LedgerUseCase) RecomputeBalance(ctx context.Context, productID string) (int64, error) {
	var total int64
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		_ repository.BulkEntryRepository,
	) error {
		if _, err := productRepo.GetBalanceForUpdate(ctx, productID); err != nil {
			return err
		}
		sum, err := movRepo.SumDeltas(ctx, productID)
		if err != nil {
			return err
		}
		total = sum
		return productRepo.UpdateBalance(ctx, productID, total)
	})
	if err != nil {
		return 0, wrapStorage(err)
	}
	return total, nil
}
