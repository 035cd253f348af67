package repository

import (
	"context"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
)

// ProductRepository define el puerto hacia el almacén de productos (entidad
// externa: el kardex solo consulta existencia y mantiene el saldo
// materializado, nunca crea ni edita productos).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)

	// GetBalanceForUpdate devuelve el saldo materializado bloqueando la fila
	// del producto (SELECT FOR UPDATE) hasta el fin de la transacción.
	// Retorna domain.ErrProductNotFound si el producto no existe.
	GetBalanceForUpdate(ctx context.Context, productID string) (int64, error)

	// UpdateBalance escribe el saldo materializado (dentro de la misma
	// transacción que persiste los movimientos que lo justifican).
	UpdateBalance(ctx context.Context, productID string, balance int64) error
}
