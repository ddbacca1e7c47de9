package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Pescaderia-api/internal/application/dto"
	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
)

// LotHandler consultas de lotes, libro y valoración (protegido, solo lectura).
type LotHandler struct {
	cost  *inventory.CostUseCase
	audit *inventory.AuditUseCase
	log   *logger.Logger
}

// NewLotHandler construye el handler.
func NewLotHandler(cost *inventory.CostUseCase, audit *inventory.AuditUseCase, log *logger.Logger) *LotHandler {
	return &LotHandler{cost: cost, audit: audit, log: log.Component("http-lots")}
}

// StockSummary godoc
// @Summary      Valoración de stock de un producto
// @Description  Lotes abiertos en orden FIFO, peso teórico y costo promedio ponderado (PMA).
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockSummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/products/{productId}/stock [get]
func (h *LotHandler) StockSummary(c *fiber.Ctx) error {
	out, err := h.cost.StockSummary(c.UserContext(), c.Params("productId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetLot godoc
// @Summary      Obtener lote
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del lote"
// @Success      200  {object}  dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id} [get]
func (h *LotHandler) GetLot(c *fiber.Ctx) error {
	lot, err := h.audit.GetLot(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToLotResponse(lot))
}

// LotMovements godoc
// @Summary      Historial de un lote
// @Description  Movimientos del lote en orden cronológico, filtrables por rango de fechas.
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id    path   string  true   "ID del lote"
// @Param        from  query  string  false  "Desde (RFC3339)"
// @Param        to    query  string  false  "Hasta (RFC3339)"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/movements [get]
func (h *LotHandler) LotMovements(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	list, err := h.audit.LotHistory(c.UserContext(), c.Params("id"), from, to)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ToMovementResponses(list))
}

// VerifyLot godoc
// @Summary      Verificar lote contra su libro
// @Description  Reproduce los movimientos del lote y compara con el peso restante almacenado.
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del lote"
// @Success      200  {object}  dto.LotVerifyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/verify [get]
func (h *LotHandler) VerifyLot(c *fiber.Ctx) error {
	out, err := h.audit.VerifyLot(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !out.Consistent {
		h.log.Warn().
			Str("lot_id", out.LotID).
			Str("remaining", out.RemainingWeight.String()).
			Str("replayed", out.ReplayedWeight.String()).
			Msg("lote inconsistente con su libro")
	}
	return c.JSON(out)
}

// ProductMovements godoc
// @Summary      Historial de movimientos de un producto
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        productId  path   string  true   "ID del producto"
// @Param        from       query  string  false  "Desde (RFC3339)"
// @Param        to         query  string  false  "Hasta (RFC3339)"
// @Param        limit      query  int     false  "Límite (default 20)"
// @Param        offset     query  int     false  "Offset"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/products/{productId}/movements [get]
func (h *LotHandler) ProductMovements(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if details := validateStruct(page); details != nil {
		return validationFailed(c, details)
	}
	list, err := h.audit.ProductHistory(c.UserContext(), c.Params("productId"), from, to, page)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"items": dto.ToMovementResponses(list),
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

func parseRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	parse := func(key string) (*time.Time, error) {
		raw := c.Query(key)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s debe ser RFC3339", domain.ErrInvalidInput, key)
		}
		return &t, nil
	}
	if from, err = parse("from"); err != nil {
		return nil, nil, err
	}
	if to, err = parse("to"); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("%w: to anterior a from", domain.ErrInvalidInput)
	}
	return from, to, nil
}
