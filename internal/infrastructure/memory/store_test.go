package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/infrastructure/memory"
)

func movement(productID string, typ entity.MovementType, qty int64) *entity.StockMovement {
	return &entity.StockMovement{
		ID:        productID + "-" + string(typ),
		ProductID: productID,
		Type:      typ,
		Quantity:  qty,
		CreatedAt: time.Now().UTC(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// SeedProduct
// ──────────────────────────────────────────────────────────────────────────────

func TestSeedProduct_SaldoInicialRespaldadoPorLaHistoria(t *testing.T) {
	store := memory.NewStore()
	store.SeedProduct("p1", "SKU-1", "Crema facial", 10)
	store.SeedProduct("p2", "SKU-2", "Serum", 0)
	ctx := context.Background()
	repo := memory.NewStockMovementRepository(store)

	// Caché y pliegue de la historia coinciden desde el arranque
	total, err := repo.SumDeltas(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)

	movs, err := repo.ListByProduct(ctx, "p1", nil, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementAdjustmentIn, movs[0].Type)
	assert.Positive(t, movs[0].Seq)

	// Saldo inicial cero no genera movimiento de apertura
	movs, err = repo.ListByProduct(ctx, "p2", nil, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, movs)
}

// ──────────────────────────────────────────────────────────────────────────────
// TxRunner — commit y rollback
// ──────────────────────────────────────────────────────────────────────────────

func TestTxRunner_CommitAplicaEscriturasJuntas(t *testing.T) {
	store := memory.NewStore()
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)
	ctx := context.Background()

	err := memory.NewTxRunner(store).Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		_ repository.BulkEntryRepository,
	) error {
		if _, err := productRepo.GetBalanceForUpdate(ctx, "p1"); err != nil {
			return err
		}
		m := movement("p1", entity.MovementPurchaseIn, 10)
		if err := movRepo.Create(ctx, m); err != nil {
			return err
		}
		return productRepo.UpdateBalance(ctx, "p1", 10)
	})
	require.NoError(t, err)

	product, err := memory.NewProductRepository(store).GetByID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, product)
	require.NotNil(t, product.Stock)
	assert.Equal(t, int64(10), *product.Stock)

	movs, err := memory.NewStockMovementRepository(store).ListByProduct(ctx, "p1", nil, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Positive(t, movs[0].Seq, "el commit asigna seq")
}

func TestTxRunner_ErrorDescartaElStaging(t *testing.T) {
	store := memory.NewStore()
	store.SeedProduct("p1", "SKU-1", "Crema facial", 5)
	ctx := context.Background()
	boom := errors.New("boom")

	err := memory.NewTxRunner(store).Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		_ repository.BulkEntryRepository,
	) error {
		if _, err := productRepo.GetBalanceForUpdate(ctx, "p1"); err != nil {
			return err
		}
		if err := movRepo.Create(ctx, movement("p1", entity.MovementPurchaseIn, 10)); err != nil {
			return err
		}
		if err := productRepo.UpdateBalance(ctx, "p1", 15); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nada del staging debe ser visible: solo queda el movimiento de apertura
	product, err := memory.NewProductRepository(store).GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), *product.Stock)
	movs, err := memory.NewStockMovementRepository(store).ListByProduct(ctx, "p1", nil, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementAdjustmentIn, movs[0].Type)
	assert.Equal(t, int64(5), movs[0].Quantity)
}

func TestTxRunner_LecturaEnTxVeElSaldoEnStaging(t *testing.T) {
	store := memory.NewStore()
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)
	ctx := context.Background()

	err := memory.NewTxRunner(store).Run(ctx, func(
		_ repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		_ repository.BulkEntryRepository,
	) error {
		if err := productRepo.UpdateBalance(ctx, "p1", 42); err != nil {
			return err
		}
		balance, err := productRepo.GetBalanceForUpdate(ctx, "p1")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(42), balance, "la tx lee sus propias escrituras")
		return nil
	})
	require.NoError(t, err)
}

func TestTxRunner_ClaveDeLoteSeRevalidaEnElCommit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	runner := memory.NewTxRunner(store)

	record := func(id string) *entity.BulkEntryRecord {
		return &entity.BulkEntryRecord{ID: id, IdempotencyKey: "clave-unica", Rows: 1, CreatedAt: time.Now().UTC()}
	}
	err := runner.Run(ctx, func(
		_ repository.StockMovementRepository,
		_ repository.ProductRepository,
		batchRepo repository.BulkEntryRepository,
	) error {
		return batchRepo.Create(ctx, record("lote-1"))
	})
	require.NoError(t, err)

	err = runner.Run(ctx, func(
		_ repository.StockMovementRepository,
		_ repository.ProductRepository,
		batchRepo repository.BulkEntryRepository,
	) error {
		return batchRepo.Create(ctx, record("lote-2"))
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	rec, err := memory.NewBulkEntryRepository(store).GetByKey(ctx, "clave-unica")
	require.NoError(t, err)
	assert.Equal(t, "lote-1", rec.ID, "el primer lote conserva la clave")
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios de lectura
// ──────────────────────────────────────────────────────────────────────────────

func TestStockMovementRepo_VentanaYOrden(t *testing.T) {
	store := memory.NewStore()
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)
	ctx := context.Background()
	runner := memory.NewTxRunner(store)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		m := movement("p1", entity.MovementPurchaseIn, 1)
		m.ID = m.ID + "-" + string(rune('a'+i))
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		err := runner.Run(ctx, func(
			movRepo repository.StockMovementRepository,
			productRepo repository.ProductRepository,
			_ repository.BulkEntryRepository,
		) error {
			if _, err := productRepo.GetBalanceForUpdate(ctx, "p1"); err != nil {
				return err
			}
			return movRepo.Create(ctx, m)
		})
		require.NoError(t, err)
	}

	repo := memory.NewStockMovementRepository(store)

	from := base.Add(time.Minute)
	to := base.Add(2 * time.Minute)
	movs, err := repo.ListByProduct(ctx, "p1", &from, &to, 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 2, "la ventana [from, to] es inclusiva en ambos extremos")
	assert.True(t, movs[0].CreatedAt.Before(movs[1].CreatedAt))

	total, err := repo.SumDeltas(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	until, err := repo.SumDeltasUntil(ctx, "p1", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), until, "corte inclusivo")

	before, err := repo.SumDeltasBefore(ctx, "p1", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), before, "corte exclusivo")
}

func TestProductRepo_ProductoInexistente(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	repo := memory.NewProductRepository(store)

	product, err := repo.GetByID(ctx, "fantasma")
	require.NoError(t, err)
	assert.Nil(t, product)

	err = repo.UpdateBalance(ctx, "fantasma", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestBulkEntryRepo_GetByKeyInexistente(t *testing.T) {
	store := memory.NewStore()
	_, err := memory.NewBulkEntryRepository(store).GetByKey(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
