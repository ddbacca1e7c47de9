package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine          *inventory.FIFOEngine
	Transform       *inventory.TransformUseCase
	Reconcile       *inventory.ReconcileUseCase
	LotSync         *inventory.LotSyncUseCase
	Cost            *inventory.CostUseCase
	Audit           *inventory.AuditUseCase
	ConflictRetries int
	JWTSecret       string
	Log             *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	stockHandler := NewStockHandler(deps.Engine, deps.Transform, deps.Reconcile, deps.ConflictRetries, deps.Log)
	lotHandler := NewLotHandler(deps.Cost, deps.Audit, deps.Log)
	purchaseHandler := NewPurchaseHandler(deps.LotSync, deps.ConflictRetries, deps.Log)

	// Ventas en mostrador y obrador
	protected.Post("/stock/consume", RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor), stockHandler.Consume)

	// Obrador y cámara
	warehouseOnly := RequireRole(RoleAdmin, RoleBodeguero)
	protected.Post("/transformations", warehouseOnly, stockHandler.Transform)
	protected.Post("/reconciliations", warehouseOnly, stockHandler.Reconcile)

	purchases := protected.Group("/purchases", warehouseOnly)
	purchases.Put("/:purchaseId/lines/:lineId", purchaseHandler.UpsertLine)
	purchases.Delete("/:purchaseId/lines/:lineId", purchaseHandler.DeleteLine)

	// Consultas (cualquier rol autenticado)
	products := protected.Group("/products")
	products.Get("/:productId/stock", lotHandler.StockSummary)
	products.Get("/:productId/movements", lotHandler.ProductMovements)

	lots := protected.Group("/lots")
	lots.Get("/:id", lotHandler.GetLot)
	lots.Get("/:id/movements", lotHandler.LotMovements)
	lots.Get("/:id/verify", lotHandler.VerifyLot)
}
