package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Pescaderia-api/internal/application/dto"
	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
)

// PurchaseHandler sincronización síncrona de líneas de compra con el almacén de lotes (protegido).
// Es la alternativa HTTP al consumidor de eventos purchase.line.*.
type PurchaseHandler struct {
	sync    *inventory.LotSyncUseCase
	retries int
	log     *logger.Logger
}

// NewPurchaseHandler construye el handler.
func NewPurchaseHandler(sync *inventory.LotSyncUseCase, retries int, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{sync: sync, retries: retries, log: log.Component("http-purchases")}
}

// UpsertLine godoc
// @Summary      Sincronizar línea de compra
// @Description  Crea o actualiza el lote de la línea. Línea no recibida o con peso cero elimina el lote.
// @Tags         purchases
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        purchaseId  path  string                   true  "ID de la compra"
// @Param        lineId      path  string                   true  "ID de la línea"
// @Param        body        body  dto.PurchaseLineRequest  true  "product_id, received, weight_kg, unit_cost, provenance"
// @Success      200  {object}  dto.LotSyncResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchases/{purchaseId}/lines/{lineId} [put]
func (h *PurchaseHandler) UpsertLine(c *fiber.Ctx) error {
	var in dto.PurchaseLineRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if details := validateStruct(in); details != nil {
		return validationFailed(c, details)
	}
	line := inventory.PurchaseLine{
		PurchaseID: c.Params("purchaseId"),
		LineID:     c.Params("lineId"),
		ProductID:  in.ProductID,
		Received:   in.Received,
		WeightKg:   in.WeightKg,
		UnitCost:   in.UnitCost,
		Provenance: in.Provenance,
	}
	if in.ReceivedAt != nil {
		line.ReceivedAt = in.ReceivedAt.UTC()
	}

	var res *inventory.SyncResult
	err := inventory.WithConflictRetry(c.UserContext(), h.retries, func() error {
		r, err := h.sync.SyncPurchaseLine(c.UserContext(), line)
		res = r
		return err
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toSyncResponse(res))
}

// DeleteLine godoc
// @Summary      Eliminar línea de compra
// @Description  Elimina el lote de la línea. Un lote ya consumido no se puede eliminar.
// @Tags         purchases
// @Security     Bearer
// @Produce      json
// @Param        purchaseId  path  string  true  "ID de la compra"
// @Param        lineId      path  string  true  "ID de la línea"
// @Success      200  {object}  dto.LotSyncResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchases/{purchaseId}/lines/{lineId} [delete]
func (h *PurchaseHandler) DeleteLine(c *fiber.Ctx) error {
	var res *inventory.SyncResult
	err := inventory.WithConflictRetry(c.UserContext(), h.retries, func() error {
		r, err := h.sync.DeletePurchaseLine(c.UserContext(), c.Params("purchaseId"), c.Params("lineId"))
		res = r
		return err
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toSyncResponse(res))
}

func toSyncResponse(res *inventory.SyncResult) dto.LotSyncResponse {
	out := dto.LotSyncResponse{Action: res.Action}
	if res.Lot != nil {
		lr := dto.ToLotResponse(res.Lot)
		out.Lot = &lr
	}
	if res.Weighted != nil {
		out.WeightedUnitCost = &res.Weighted.UnitCost
		out.OpenWeight = &res.Weighted.TotalOpenWeight
	}
	return out
}
