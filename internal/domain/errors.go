package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	// Validación: fallas de entrada del caller, nunca se reintentan.
	ErrInvalidMovementType   = errors.New("tipo de movimiento inválido")
	ErrInvalidQuantity       = errors.New("la cantidad debe ser un entero mayor que cero")
	ErrInvalidUnitCost       = errors.New("el costo unitario no puede ser negativo")
	ErrInvalidProductRef     = errors.New("referencia de producto vacía")
	ErrEmptyBatch            = errors.New("la entrada masiva debe tener al menos una fila")
	ErrMissingIdempotencyKey = errors.New("clave de idempotencia requerida")

	// Regla de negocio: se reportan al caller para corregir y reenviar.
	ErrProductNotFound     = errors.New("producto no encontrado")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrIdempotencyMismatch = errors.New("la clave de idempotencia ya fue usada con un lote distinto")

	// Infraestructura: transitorio, el caller puede reintentar con la misma clave.
	ErrStorageUnavailable = errors.New("almacenamiento no disponible")

	ErrDuplicate = errors.New("recurso duplicado")
	ErrNotFound  = errors.New("recurso no encontrado")
)

// RowError asocia un error de fila con su índice dentro de una entrada
// masiva, para que el caller sepa exactamente qué línea falló.
// Transparente para errors.Is/As vía Unwrap.
type RowError struct {
	Row int // índice basado en cero dentro del lote
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("fila %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// NewRowError construye el error de fila.
func NewRowError(row int, err error) *RowError {
	return &RowError{Row: row, Err: err}
}
