package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo cerrado de movimiento de kardex. El signo del movimiento
// lo determina el tipo, nunca se almacena por separado.
type MovementType string

const (
	MovementPurchaseIn    MovementType = "PURCHASE_IN"    // compra (entrada con costo)
	MovementAdjustmentIn  MovementType = "ADJUSTMENT_IN"  // ajuste manual positivo
	MovementAdjustmentOut MovementType = "ADJUSTMENT_OUT" // ajuste manual negativo
	MovementOrderOut      MovementType = "ORDER_OUT"      // consumo por pedido (producido por el subsistema de pedidos)
)

// ParseMovementType valida y normaliza el tipo recibido desde afuera.
func ParseMovementType(s string) (MovementType, bool) {
	switch MovementType(s) {
	case MovementPurchaseIn, MovementAdjustmentIn, MovementAdjustmentOut, MovementOrderOut:
		return MovementType(s), true
	}
	return "", false
}

// Sign devuelve +1 para entradas y -1 para salidas. Función total sobre el
// tipo: agregar un tipo nuevo obliga a decidir aquí su dirección.
func (t MovementType) Sign() int64 {
	switch t {
	case MovementPurchaseIn, MovementAdjustmentIn:
		return +1
	case MovementAdjustmentOut, MovementOrderOut:
		return -1
	}
	return 0 // tipo desconocido: el validador lo rechaza antes de llegar aquí
}

// Inbound indica si el tipo suma al saldo (las entradas pueden llevar costo unitario).
func (t MovementType) Inbound() bool {
	return t.Sign() > 0
}

// StockMovement es la unidad atómica del kardex: un cambio inmutable y con
// signo sobre la cantidad disponible de un producto. Nunca se edita ni se
// borra; las correcciones se hacen con un movimiento compensatorio.
type StockMovement struct {
	ID        string
	BatchID   string // entrada masiva que lo originó; vacío para movimientos sueltos
	ProductID string
	Type      MovementType
	Quantity  int64            // siempre positivo; la dirección la da Type
	UnitCost  *decimal.Decimal // solo entradas con base de costo; nil en ajustes sin costo
	Notes     string
	Seq       int64 // orden de inserción, desempata CreatedAt iguales
	CreatedAt time.Time
	CreatedBy string // UserID (solo auditoría)
}

// Delta cantidad con signo según el tipo.
func (m *StockMovement) Delta() int64 {
	return m.Type.Sign() * m.Quantity
}

// BulkEntryRecord registra una entrada masiva aplicada, para garantizar
// idempotencia: reintentar con la misma clave no duplica movimientos.
type BulkEntryRecord struct {
	ID             string
	IdempotencyKey string
	Rows           int
	CreatedAt      time.Time
	CreatedBy      string
}

// KardexRow una fila de la proyección kardex: movimiento + saldo acumulado.
type KardexRow struct {
	Movement *StockMovement
	Balance  int64 // saldo después de aplicar el movimiento
}
