package http

import (
	"github.com/gofiber/fiber/v2"

	appkardex "github.com/jfloresavalos/Nelaglow-sub001/internal/application/kardex"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *appkardex.LedgerUseCase
	Balance   *appkardex.BalanceQueryUseCase
	Kardex    *appkardex.KardexViewUseCase
	JWTSecret string
}

// Router registra las rutas de la API. Todo el kardex va protegido: el
// middleware de auth aporta el usuario que firma cada movimiento.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	handler := NewKardexHandler(deps.Ledger, deps.Balance, deps.Kardex)

	inv := protected.Group("/inventory")
	inv.Post("/movements", handler.RegisterMovement)
	inv.Post("/movements/bulk", handler.RegisterBulkEntry)
	inv.Get("/products/:id/kardex", handler.GetKardex)
	inv.Get("/products/:id/balance", handler.GetBalance)
	inv.Post("/products/:id/recompute-balance", handler.RecomputeBalance)
}
