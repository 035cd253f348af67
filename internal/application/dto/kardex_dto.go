package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
)

// MovementRequest body para POST /api/inventory/movements (y cada fila de
// una entrada masiva).
type MovementRequest struct {
	ProductID string           `json:"product_id"`
	Type      string           `json:"type"`
	Quantity  int64            `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// BulkEntryRequest body para POST /api/inventory/movements/bulk. La clave de
// idempotencia la genera el caller; reenviar con la misma clave no duplica.
type BulkEntryRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	Rows           []MovementRequest `json:"rows"`
}

// MovementResponse un movimiento persistido.
type MovementResponse struct {
	ID        string           `json:"id"`
	BatchID   string           `json:"batch_id,omitempty"`
	ProductID string           `json:"product_id"`
	Type      string           `json:"type"`
	Quantity  int64            `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	CreatedBy string           `json:"created_by,omitempty"`
}

// KardexRowResponse fila de la proyección kardex: movimiento + saldo acumulado.
type KardexRowResponse struct {
	MovementResponse
	Balance int64 `json:"balance"`
}

// BalanceResponse saldo de un producto; AsOf presente solo en consultas a la fecha.
type BalanceResponse struct {
	ProductID string     `json:"product_id"`
	Balance   int64      `json:"balance"`
	AsOf      *time.Time `json:"as_of,omitempty"`
}

// NewMovementResponse mapea la entidad al DTO.
func NewMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:        m.ID,
		BatchID:   m.BatchID,
		ProductID: m.ProductID,
		Type:      string(m.Type),
		Quantity:  m.Quantity,
		UnitCost:  m.UnitCost,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
		CreatedBy: m.CreatedBy,
	}
}

// NewKardexRowResponse mapea una fila kardex al DTO.
func NewKardexRowResponse(row entity.KardexRow) KardexRowResponse {
	return KardexRowResponse{
		MovementResponse: NewMovementResponse(row.Movement),
		Balance:          row.Balance,
	}
}
