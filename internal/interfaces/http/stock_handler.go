package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Pescaderia-api/internal/application/dto"
	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
)

// StockHandler operaciones que mueven stock: ventas, transformaciones y conciliaciones (protegido).
type StockHandler struct {
	engine    *inventory.FIFOEngine
	transform *inventory.TransformUseCase
	reconcile *inventory.ReconcileUseCase
	retries   int
	log       *logger.Logger
}

// NewStockHandler construye el handler. retries es el número de intentos ante conflictos de concurrencia.
func NewStockHandler(
	engine *inventory.FIFOEngine,
	transform *inventory.TransformUseCase,
	reconcile *inventory.ReconcileUseCase,
	retries int,
	log *logger.Logger,
) *StockHandler {
	return &StockHandler{
		engine:    engine,
		transform: transform,
		reconcile: reconcile,
		retries:   retries,
		log:       log.Component("http-stock"),
	}
}

// Consume godoc
// @Summary      Consumir stock en orden FIFO
// @Description  Descuenta del lote más antiguo al más reciente. Una venta sin stock suficiente no escribe nada.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConsumeRequest  true  "product_id, quantity (kg), kind (sale por defecto)"
// @Success      201   {object}  dto.ConsumeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/consume [post]
func (h *StockHandler) Consume(c *fiber.Ctx) error {
	var in dto.ConsumeRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	kind := in.Kind
	if kind == "" {
		kind = entity.MovementKindSale
	}
	// Vendedor solo registra ventas; las correcciones de inventario son de bodega.
	if kind != entity.MovementKindSale && !isWarehouseRole(GetRole(c)) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Code:    "FORBIDDEN",
			Message: "solo admin o bodeguero registran movimientos distintos de venta",
		})
	}

	var res *inventory.ConsumeResult
	err := inventory.WithConflictRetry(c.UserContext(), h.retries, func() error {
		r, err := h.engine.Consume(c.UserContext(), inventory.ConsumeInput{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Kind:      kind,
			Context: entity.MovementContext{
				SessionID: in.SessionID,
				SaleID:    in.SaleID,
				Actor:     GetUserID(c),
			},
		})
		res = r
		return err
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ConsumeResponse{
		TransactionID: res.TransactionID,
		Consumed:      res.Consumed,
		TotalCost:     res.TotalCost,
		Shortfall:     res.Shortfall,
		Movements:     dto.ToMovementResponses(res.Movements),
	})
}

// Transform godoc
// @Summary      Transformar productos en un lote derivado
// @Description  Consume uno (fileteado, porcionado) o varios orígenes (receta) y crea un lote con costo y trazabilidad heredados.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransformRequest  true  "sources, destination_product_id, produced_quantity"
// @Success      201   {object}  dto.TransformResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/transformations [post]
func (h *StockHandler) Transform(c *fiber.Ctx) error {
	var in dto.TransformRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	sources := make([]inventory.TransformSource, 0, len(in.Sources))
	for _, s := range in.Sources {
		sources = append(sources, inventory.TransformSource{ProductID: s.ProductID, Quantity: s.Quantity})
	}

	var res *inventory.TransformResult
	err := inventory.WithConflictRetry(c.UserContext(), h.retries, func() error {
		r, err := h.transform.Transform(c.UserContext(), inventory.TransformInput{
			Sources:              sources,
			DestinationProductID: in.DestinationProductID,
			ProducedQuantity:     in.ProducedQuantity,
			SourceType:           in.SourceType,
			Context:              entity.MovementContext{SessionID: in.SessionID, Actor: GetUserID(c)},
		})
		res = r
		return err
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransformResponse{
		TransactionID: res.TransactionID,
		Lot:           dto.ToLotResponse(res.Lot),
		TotalCost:     res.TotalCost,
		Movements:     dto.ToMovementResponses(res.Movements),
	})
}

// Reconcile godoc
// @Summary      Conciliar inventario físico
// @Description  Compara el conteo con el stock teórico y registra la merma como corrección FIFO. Un sobrante se informa pero no se aplica.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReconcileRequest  true  "product_id, counted_weight (kg)"
// @Success      200   {object}  dto.ReconcileResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/reconciliations [post]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.ReconcileRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}

	var res *inventory.ReconcileResult
	err := inventory.WithConflictRetry(c.UserContext(), h.retries, func() error {
		r, err := h.reconcile.Reconcile(c.UserContext(), inventory.ReconcileInput{
			ProductID:     in.ProductID,
			CountedWeight: in.CountedWeight,
			Actor:         GetUserID(c),
			SessionID:     in.SessionID,
			CountDate:     in.CountDate,
		})
		res = r
		return err
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ReconcileResponse{
		TransactionID:     res.TransactionID,
		ProductID:         res.ProductID,
		NoCorrection:      res.NoCorrection,
		TheoreticalWeight: res.TheoreticalWeight,
		CountedWeight:     res.CountedWeight,
		Shortfall:         res.Shortfall,
		Gain:              res.Gain,
		Uncovered:         res.Uncovered,
		UnitCostSnapshot:  res.UnitCostSnapshot,
		Movements:         dto.ToMovementResponses(res.Movements),
	})
}

func isWarehouseRole(role string) bool {
	return role == RoleAdmin || role == RoleBodeguero
}
