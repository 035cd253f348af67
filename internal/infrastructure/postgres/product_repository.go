package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo acceso de solo-kardex a la tabla products (usable con pool o
// tx). El CRUD de productos pertenece a otro subsistema: aquí solo se
// consulta existencia y se mantiene la columna stock como caché del saldo.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene la referencia del producto; nil si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT id, sku, name, stock, updated_at FROM products WHERE id = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Stock, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetBalanceForUpdate lee el saldo materializado bloqueando la fila del
// producto (SELECT FOR UPDATE) hasta el fin de la transacción. Es el punto
// de exclusión por producto del motor: dos appends concurrentes sobre el
// mismo producto se serializan aquí.
func (r *ProductRepo) GetBalanceForUpdate(ctx context.Context, productID string) (int64, error) {
	query := `SELECT stock FROM products WHERE id = $1 FOR UPDATE`
	var stock *int64
	err := r.q.QueryRow(ctx, query, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("get balance for update: %w", err)
	}
	if stock == nil {
		// Caché no confiable: reconstruir desde la historia dentro de la misma tx
		return NewStockMovementRepository(r.q).SumDeltas(ctx, productID)
	}
	return *stock, nil
}

// UpdateBalance escribe el saldo materializado del producto.
func (r *ProductRepo) UpdateBalance(ctx context.Context, productID string, balance int64) error {
	query := `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, productID, balance)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
