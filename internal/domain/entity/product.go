package entity

import "time"

// Product referencia mínima al producto (entidad externa: el CRUD vive en
// otro subsistema). El kardex solo necesita su existencia y el saldo
// materializado; Stock es una caché derivada de los movimientos y puede
// recomputarse en cualquier momento, nunca es fuente de verdad.
type Product struct {
	ID        string
	SKU       string
	Name      string
	Stock     *int64 // saldo materializado; nil = caché no confiable, recalcular
	UpdatedAt time.Time
}
