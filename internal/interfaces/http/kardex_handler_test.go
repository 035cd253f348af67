package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfloresavalos/Nelaglow-sub001/internal/application/dto"
	appkardex "github.com/jfloresavalos/Nelaglow-sub001/internal/application/kardex"
	"github.com/jfloresavalos/Nelaglow-sub001/internal/infrastructure/memory"
	apphttp "github.com/jfloresavalos/Nelaglow-sub001/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildKardexApp levanta la API completa sobre el backend en memoria.
func buildKardexApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	movRepo := memory.NewStockMovementRepository(store)
	productRepo := memory.NewProductRepository(store)
	batchRepo := memory.NewBulkEntryRepository(store)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:    appkardex.NewLedgerUseCase(memory.NewTxRunner(store), movRepo, batchRepo),
		Balance:   appkardex.NewBalanceQueryUseCase(productRepo, movRepo),
		Kardex:    appkardex.NewKardexViewUseCase(movRepo),
		JWTSecret: testJWTSecret,
	})
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/inventory/movements
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterMovement_Creado(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements", dto.MovementRequest{
		ProductID: "p1", Type: "PURCHASE_IN", Quantity: 100,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var mov dto.MovementResponse
	decodeJSON(t, resp, &mov)
	assert.NotEmpty(t, mov.ID)
	assert.Equal(t, "p1", mov.ProductID)
	assert.Equal(t, int64(100), mov.Quantity)
	assert.Equal(t, testUserID, mov.CreatedBy, "created_by sale del token, no del body")
}

func TestRegisterMovement_SinToken_Retorna401(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	body, _ := json.Marshal(dto.MovementRequest{ProductID: "p1", Type: "PURCHASE_IN", Quantity: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/movements", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterMovement_TipoDesconocido_Retorna400(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements", dto.MovementRequest{
		ProductID: "p1", Type: "TRANSFER", Quantity: 5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e dto.ErrorResponse
	decodeJSON(t, resp, &e)
	assert.Equal(t, "VALIDATION", e.Code)
}

func TestRegisterMovement_ProductoInexistente_Retorna404(t *testing.T) {
	app, _ := buildKardexApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements", dto.MovementRequest{
		ProductID: "fantasma", Type: "PURCHASE_IN", Quantity: 5,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterMovement_Sobregiro_Retorna409(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 10)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements", dto.MovementRequest{
		ProductID: "p1", Type: "ADJUSTMENT_OUT", Quantity: 15,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var e dto.ErrorResponse
	decodeJSON(t, resp, &e)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/inventory/movements/bulk
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterBulkEntry_TodoONada(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements/bulk", dto.BulkEntryRequest{
		IdempotencyKey: uuid.New().String(),
		Rows: []dto.MovementRequest{
			{ProductID: "p1", Type: "PURCHASE_IN", Quantity: 100},
			{ProductID: "p1", Type: "ADJUSTMENT_OUT", Quantity: 30},
		},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var movs []dto.MovementResponse
	decodeJSON(t, resp, &movs)
	require.Len(t, movs, 2)
	assert.Equal(t, movs[0].BatchID, movs[1].BatchID)

	// Saldo final visible por la API de balance
	var bal dto.BalanceResponse
	balResp := doJSON(t, app, http.MethodGet, "/api/inventory/products/p1/balance", nil)
	assert.Equal(t, http.StatusOK, balResp.StatusCode)
	decodeJSON(t, balResp, &bal)
	assert.Equal(t, int64(70), bal.Balance)
}

func TestRegisterBulkEntry_FilaInvalida_Retorna400YNadaPersiste(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements/bulk", dto.BulkEntryRequest{
		IdempotencyKey: uuid.New().String(),
		Rows: []dto.MovementRequest{
			{ProductID: "p1", Type: "PURCHASE_IN", Quantity: 10},
			{ProductID: "p1", Type: "PURCHASE_IN", Quantity: -1},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var bal dto.BalanceResponse
	balResp := doJSON(t, app, http.MethodGet, "/api/inventory/products/p1/balance", nil)
	decodeJSON(t, balResp, &bal)
	assert.Equal(t, int64(0), bal.Balance)
}

func TestRegisterBulkEntry_SinClave_Retorna400(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements/bulk", dto.BulkEntryRequest{
		Rows: []dto.MovementRequest{{ProductID: "p1", Type: "PURCHASE_IN", Quantity: 10}},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterBulkEntry_ReintentoMismaClave_Retorna201SinDuplicar(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)
	key := uuid.New().String()

	body := dto.BulkEntryRequest{
		IdempotencyKey: key,
		Rows:           []dto.MovementRequest{{ProductID: "p1", Type: "PURCHASE_IN", Quantity: 100}},
	}
	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements/bulk", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/inventory/movements/bulk", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var bal dto.BalanceResponse
	balResp := doJSON(t, app, http.MethodGet, "/api/inventory/products/p1/balance", nil)
	decodeJSON(t, balResp, &bal)
	assert.Equal(t, int64(100), bal.Balance, "el reintento no debe duplicar el ingreso")
}

// ──────────────────────────────────────────────────────────────────────────────
// GET /api/inventory/products/:id/kardex y /balance
// ──────────────────────────────────────────────────────────────────────────────

func TestGetKardex_SaldoCorrido(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements/bulk", dto.BulkEntryRequest{
		IdempotencyKey: uuid.New().String(),
		Rows: []dto.MovementRequest{
			{ProductID: "p1", Type: "PURCHASE_IN", Quantity: 100},
			{ProductID: "p1", Type: "ADJUSTMENT_OUT", Quantity: 30},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	kardexResp := doJSON(t, app, http.MethodGet, "/api/inventory/products/p1/kardex", nil)
	assert.Equal(t, http.StatusOK, kardexResp.StatusCode)

	var rows []dto.KardexRowResponse
	decodeJSON(t, kardexResp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(100), rows[0].Balance)
	assert.Equal(t, int64(70), rows[1].Balance)
}

func TestGetKardex_FromInvalido_Retorna400(t *testing.T) {
	app, _ := buildKardexApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/inventory/products/p1/kardex?from=ayer", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetBalance_AsOf(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements", dto.MovementRequest{
		ProductID: "p1", Type: "PURCHASE_IN", Quantity: 40,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var mov dto.MovementResponse
	decodeJSON(t, resp, &mov)

	asOf := mov.CreatedAt.UTC().Format(time.RFC3339Nano)
	balResp := doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/inventory/products/p1/balance?as_of=%s", asOf), nil)
	assert.Equal(t, http.StatusOK, balResp.StatusCode)

	var bal dto.BalanceResponse
	decodeJSON(t, balResp, &bal)
	assert.Equal(t, int64(40), bal.Balance)
	require.NotNil(t, bal.AsOf)
}

func TestGetBalance_ProductoInexistente_Retorna404(t *testing.T) {
	app, _ := buildKardexApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/inventory/products/fantasma/balance", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/inventory/products/:id/recompute-balance
// ──────────────────────────────────────────────────────────────────────────────

func TestRecomputeBalance_DevuelveElPliegue(t *testing.T) {
	app, store := buildKardexApp(t)
	store.SeedProduct("p1", "SKU-1", "Crema facial", 0)

	resp := doJSON(t, app, http.MethodPost, "/api/inventory/movements", dto.MovementRequest{
		ProductID: "p1", Type: "PURCHASE_IN", Quantity: 55,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	recResp := doJSON(t, app, http.MethodPost, "/api/inventory/products/p1/recompute-balance", nil)
	assert.Equal(t, http.StatusOK, recResp.StatusCode)

	var bal dto.BalanceResponse
	decodeJSON(t, recResp, &bal)
	assert.Equal(t, int64(55), bal.Balance)
}
