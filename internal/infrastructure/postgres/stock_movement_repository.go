package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación del kardex sobre PostgreSQL (usable con
// pool o tx). La tabla stock_movements es append-only: sin UPDATE ni DELETE.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, batch_id, product_id, type, quantity, unit_cost, notes, seq, created_at, created_by`

// signedQuantity expresión SQL del delta con signo. Debe coincidir con
// entity.MovementType.Sign.
const signedQuantity = `CASE WHEN type IN ('PURCHASE_IN', 'ADJUSTMENT_IN') THEN quantity ELSE -quantity END`

// Create persiste el movimiento; seq lo asigna la secuencia de la tabla y se
// devuelve en el struct para el desempate de orden.
func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, batch_id, product_id, type, quantity, unit_cost, notes, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`
	batchID := (*string)(nil)
	if movement.BatchID != "" {
		batchID = &movement.BatchID
	}
	createdBy := (*string)(nil)
	if movement.CreatedBy != "" {
		createdBy = &movement.CreatedBy
	}
	err := r.q.QueryRow(ctx, query,
		movement.ID, batchID, movement.ProductID, string(movement.Type),
		movement.Quantity, movement.UnitCost, movement.Notes,
		movement.CreatedAt, createdBy,
	).Scan(&movement.Seq)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

// ListByProduct lista movimientos de un producto en una ventana de tiempo,
// orden (created_at, seq) ascendente para que la proyección sea determinista.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at ASC, seq ASC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by product: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

// ListByBatch devuelve los movimientos de una entrada masiva en orden de fila.
func (r *StockMovementRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE batch_id = $1 ORDER BY seq ASC`
	rows, err := r.q.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list by batch: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

// SumDeltas pliega la historia completa del producto en SQL.
func (r *StockMovementRepo) SumDeltas(ctx context.Context, productID string) (int64, error) {
	query := `SELECT COALESCE(SUM(` + signedQuantity + `), 0) FROM stock_movements WHERE product_id = $1`
	var total int64
	if err := r.q.QueryRow(ctx, query, productID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum deltas: %w", err)
	}
	return total, nil
}

// SumDeltasUntil pliega la historia con created_at <= t.
func (r *StockMovementRepo) SumDeltasUntil(ctx context.Context, productID string, t time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(` + signedQuantity + `), 0) FROM stock_movements WHERE product_id = $1 AND created_at <= $2`
	var total int64
	if err := r.q.QueryRow(ctx, query, productID, t).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum deltas until: %w", err)
	}
	return total, nil
}

// SumDeltasBefore pliega la historia con created_at < t (apertura de ventana).
func (r *StockMovementRepo) SumDeltasBefore(ctx context.Context, productID string, t time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(` + signedQuantity + `), 0) FROM stock_movements WHERE product_id = $1 AND created_at < $2`
	var total int64
	if err := r.q.QueryRow(ctx, query, productID, t).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum deltas before: %w", err)
	}
	return total, nil
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var movType string
	var batchID, notes, createdBy *string
	if err := row.Scan(&m.ID, &batchID, &m.ProductID, &movType, &m.Quantity,
		&m.UnitCost, &notes, &m.Seq, &m.CreatedAt, &createdBy); err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(movType)
	if batchID != nil {
		m.BatchID = *batchID
	}
	if notes != nil {
		m.Notes = *notes
	}
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}

func collectMovements(rows pgx.Rows) ([]*entity.StockMovement, error) {
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
