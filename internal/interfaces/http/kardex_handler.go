package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/application/dto"
	appkardex "github.com/jfloresavalos/Nelaglow-sub001/internal/application/kardex"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/domain"
	kardexdom "github.com/jfloresavalos/Nelaglow-sub001/internal/domain/kardex"
)

// KardexHandler maneja las peticiones HTTP del kardex (protegido).
type KardexHandler struct {
	ledger  *appkardex.LedgerUseCase
	balance *appkardex.BalanceQueryUseCase
	view    *appkardex.KardexViewUseCase
}

// NewKardexHandler construye el handler.
func NewKardexHandler(
	ledger *appkardex.LedgerUseCase,
	balance *appkardex.BalanceQueryUseCase,
	view *appkardex.KardexViewUseCase,
) *KardexHandler {
	return &KardexHandler{ledger: ledger, balance: balance, view: view}
}

// RegisterMovement godoc
// @Summary      Registrar un movimiento de stock
// @Tags         kardex
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "product_id, type, quantity, unit_cost (entradas), notes"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *KardexHandler) RegisterMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	mov, err := h.ledger.AppendMovement(c.Context(), kardexdom.MovementInput{
		ProductID: in.ProductID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		UnitCost:  in.UnitCost,
		Notes:     in.Notes,
	}, userID)
	if err != nil {
		return kardexError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMovementResponse(mov))
}

// RegisterBulkEntry godoc
// @Summary      Registrar una entrada masiva (todo-o-nada)
// @Description  Aplica las filas en orden contra un único saldo en evolución.
//
//	Si cualquier fila falla, ninguna se persiste. Reenviar con la
//	misma idempotency_key devuelve el lote ya aplicado.
//
// @Tags         kardex
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkEntryRequest  true  "idempotency_key y filas"
// @Success      201   {array}   dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/bulk [post]
func (h *KardexHandler) RegisterBulkEntry(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.BulkEntryRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	rows := make([]kardexdom.MovementInput, len(in.Rows))
	for i, r := range in.Rows {
		rows[i] = kardexdom.MovementInput{
			ProductID: r.ProductID,
			Type:      r.Type,
			Quantity:  r.Quantity,
			UnitCost:  r.UnitCost,
			Notes:     r.Notes,
		}
	}
	movs, err := h.ledger.AppendBulk(c.Context(), in.IdempotencyKey, rows, userID)
	if err != nil {
		return kardexError(c, err)
	}
	out := make([]dto.MovementResponse, len(movs))
	for i, m := range movs {
		out[i] = dto.NewMovementResponse(m)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetKardex godoc
// @Summary      Proyección kardex de un producto
// @Description  Movimientos en la ventana [from, to] con saldo acumulado por
//
//	fila, orden cronológico ascendente.
//
// @Tags         kardex
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del producto"
// @Param        from    query  string  false  "RFC3339"
// @Param        to      query  string  false  "RFC3339"
// @Param        limit   query  int     false  "máx. filas (default 50)"
// @Param        offset  query  int     false  "filas a saltar"
// @Success      200  {array}   dto.KardexRowResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/kardex [get]
func (h *KardexHandler) GetKardex(c *fiber.Ctx) error {
	productID := c.Params("id")
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "from debe ser RFC3339"})
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "to debe ser RFC3339"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "limit y offset deben ser enteros"})
	}
	page.DefaultPage()

	rows, err := h.view.View(c.Context(), productID, from, to, page.Limit, page.Offset)
	if err != nil {
		return kardexError(c, err)
	}
	out := make([]dto.KardexRowResponse, len(rows))
	for i, row := range rows {
		out[i] = dto.NewKardexRowResponse(row)
	}
	return c.JSON(out)
}

// GetBalance godoc
// @Summary      Saldo actual o a la fecha de un producto
// @Description  Sin as_of devuelve el saldo materializado (o lo recalcula si
//
//	la caché no es confiable). Con as_of pliega la historia hasta
//	ese instante, nunca sirve desde caché.
//
// @Tags         kardex
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID del producto"
// @Param        as_of  query  string  false  "RFC3339"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/balance [get]
func (h *KardexHandler) GetBalance(c *fiber.Ctx) error {
	productID := c.Params("id")
	asOf, err := parseTimeQuery(c, "as_of")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "as_of debe ser RFC3339"})
	}

	if asOf != nil {
		balance, err := h.balance.BalanceAsOf(c.Context(), productID, *asOf)
		if err != nil {
			return kardexError(c, err)
		}
		return c.JSON(dto.BalanceResponse{ProductID: productID, Balance: balance, AsOf: asOf})
	}

	balance, err := h.balance.CurrentBalance(c.Context(), productID)
	if err != nil {
		return kardexError(c, err)
	}
	return c.JSON(dto.BalanceResponse{ProductID: productID, Balance: balance})
}

// RecomputeBalance godoc
// @Summary      Recalcular el saldo materializado desde la historia
// @Description  Operación de reparación: pliega todos los movimientos del
//
//	producto y reescribe la caché. La historia es la fuente de verdad.
//
// @Tags         kardex
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del producto"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/recompute-balance [post]
func (h *KardexHandler) RecomputeBalance(c *fiber.Ctx) error {
	productID := c.Params("id")
	balance, err := h.ledger.RecomputeBalance(c.Context(), productID)
	if err != nil {
		return kardexError(c, err)
	}
	return c.JSON(dto.BalanceResponse{ProductID: productID, Balance: balance})
}

// parseTimeQuery lee un query param RFC3339 opcional.
func parseTimeQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// kardexError traduce errores del motor a respuestas HTTP. El índice de fila
// de los errores de lote viaja en el mensaje (domain.RowError).
func kardexError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidMovementType),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidUnitCost),
		errors.Is(err, domain.ErrInvalidProductRef),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrMissingIdempotencyKey):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrIdempotencyMismatch):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_MISMATCH", Message: err.Error()})
	case errors.Is(err, domain.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "almacenamiento no disponible, reintente con la misma clave"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
