package kardex

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain/entity"
)

// MovementInput movimiento candidato tal como llega del caller, antes de
// normalizar. El validador solo revisa forma; la existencia del producto la
// verifica el motor de kardex dentro de la transacción.
type MovementInput struct {
	ProductID string
	Type      string
	Quantity  int64
	UnitCost  *decimal.Decimal
	Notes     string
}

// ValidateMovement valida un movimiento candidato y devuelve el movimiento
// normalizado (sin ID ni timestamp, eso lo asigna el motor al persistir).
// Función pura, sin efectos secundarios.
func ValidateMovement(in MovementInput) (*entity.StockMovement, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, domain.ErrInvalidProductRef
	}
	mt, ok := entity.ParseMovementType(in.Type)
	if !ok {
		return nil, domain.ErrInvalidMovementType
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.UnitCost != nil && in.UnitCost.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidUnitCost
	}
	return &entity.StockMovement{
		ProductID: strings.TrimSpace(in.ProductID),
		Type:      mt,
		Quantity:  in.Quantity,
		UnitCost:  in.UnitCost,
		Notes:     in.Notes,
	}, nil
}

// ValidateBulk valida una entrada masiva completa. La primera fila inválida
// corta la validación y se reporta con su índice (RowError) para que el
// caller pueda señalar la línea exacta. No se deduplican ni fusionan filas:
// filas repetidas del mismo producto se aplican como movimientos
// independientes, cada una sobre el saldo que dejaron las anteriores.
func ValidateBulk(rows []MovementInput) ([]*entity.StockMovement, error) {
	if len(rows) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	out := make([]*entity.StockMovement, 0, len(rows))
	for i, row := range rows {
		m, err := ValidateMovement(row)
		if err != nil {
			return nil, domain.NewRowError(i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// RunningBalances calcula el saldo acumulado fila a fila partiendo de un
// saldo de apertura. Es la suma de prefijos que define la proyección kardex.
func RunningBalances(opening int64, movs []*entity.StockMovement) []entity.KardexRow {
	rows := make([]entity.KardexRow, 0, len(movs))
	balance := opening
	for _, m := range movs {
		balance += m.Delta()
		rows = append(rows, entity.KardexRow{Movement: m, Balance: balance})
	}
	return rows
}
