package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/internal/domain/entity"
	"github.com/jhoicas/Pescaderia-api/internal/domain/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain/repository"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// FIFOEngine consume lotes abiertos de un producto del más antiguo al más reciente,
// descontando cada lote y anotando un movimiento por lote en la misma transacción.
type FIFOEngine struct {
	txRunner  TxRunner
	publisher EventPublisher
	log       *logger.Logger
}

// NewFIFOEngine construye el motor. publisher puede ser nil.
func NewFIFOEngine(txRunner TxRunner, publisher EventPublisher, log *logger.Logger) *FIFOEngine {
	return &FIFOEngine{txRunner: txRunner, publisher: publisher, log: log.Component("fifo")}
}

// ConsumeInput entrada de un consumo FIFO.
// CostSnapshot, si no es nil, reemplaza el costo del lote en los movimientos (ej. PMA en correcciones).
type ConsumeInput struct {
	ProductID     string
	Quantity      decimal.Decimal
	Kind          string
	Context       entity.MovementContext
	TransactionID string
	CostSnapshot  *decimal.Decimal
}

// LotTake detalle de lo tomado de un lote en un consumo.
type LotTake struct {
	Lot      *entity.Lot // estado del lote después del consumo
	Taken    decimal.Decimal
	UnitCost decimal.Decimal
}

// ConsumeResult resultado de un consumo FIFO.
// Shortfall solo puede ser > 0 en correcciones de inventario.
type ConsumeResult struct {
	TransactionID string
	Movements     []*entity.StockMovement
	Takes         []LotTake
	Consumed      decimal.Decimal
	TotalCost     decimal.Decimal
	Shortfall     decimal.Decimal
}

func (in ConsumeInput) validate() error {
	if in.ProductID == "" {
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	if err := checkScale("quantity", in.Quantity, entity.WeightScale); err != nil {
		return err
	}
	if !entity.IsConsumptionKind(in.Kind) {
		return fmt.Errorf("%w: tipo de consumo %q", domain.ErrInvalidInput, in.Kind)
	}
	if in.CostSnapshot != nil {
		if in.CostSnapshot.LessThan(decimal.Zero) {
			return fmt.Errorf("%w: costo negativo", domain.ErrInvalidInput)
		}
		if err := checkScale("cost_snapshot", *in.CostSnapshot, entity.CostScale); err != nil {
			return err
		}
	}
	return nil
}

// Consume abre una transacción y ejecuta ConsumeInTx. Si falla no queda nada confirmado.
func (e *FIFOEngine) Consume(ctx context.Context, in ConsumeInput) (*ConsumeResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.TransactionID == "" {
		in.TransactionID = uuid.New().String()
	}
	now := time.Now().UTC()

	var res *ConsumeResult
	err := e.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error {
		r, err := e.ConsumeInTx(ctx, lotRepo, movRepo, in, now)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("transaction_id", res.TransactionID).
		Str("product_id", in.ProductID).
		Str("kind", in.Kind).
		Str("consumed", res.Consumed.String()).
		Str("total_cost", res.TotalCost.String()).
		Int("lots", len(res.Takes)).
		Msg("consumo FIFO confirmado")

	eventType := EventStockConsumed
	if in.Kind == entity.MovementKindInventoryCorrection {
		eventType = EventStockCorrected
	}
	publish(ctx, e.publisher, e.log, eventType, StockConsumedEvent{
		TransactionID: res.TransactionID,
		ProductID:     in.ProductID,
		Kind:          in.Kind,
		Quantity:      res.Consumed,
		TotalCost:     res.TotalCost,
		Shortfall:     res.Shortfall,
	})
	return res, nil
}

// ConsumeInTx ejecuta el consumo FIFO con los repositorios del caller (misma transacción).
// Para sale y transformation-out exige stock completo: si no alcanza devuelve ErrInsufficientStock
// antes de escribir nada. Para inventory-correction el faltante se informa en Shortfall.
func (e *FIFOEngine) ConsumeInTx(
	ctx context.Context,
	lotRepo repository.LotRepository,
	movRepo repository.StockMovementRepository,
	in ConsumeInput,
	now time.Time,
) (*ConsumeResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.TransactionID == "" {
		in.TransactionID = uuid.New().String()
	}

	// Bloquea los lotes abiertos del producto (SELECT FOR UPDATE en PostgreSQL)
	lots, err := lotRepo.ListOpenByProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	plan := inventory.PlanFIFO(lots, in.Quantity)
	if entity.IsStrictKind(in.Kind) && !plan.Satisfied() {
		return nil, fmt.Errorf("%w: producto %s solicitado %s disponible %s",
			domain.ErrInsufficientStock, in.ProductID, in.Quantity.String(), plan.Covered.String())
	}

	res := &ConsumeResult{
		TransactionID: in.TransactionID,
		Consumed:      plan.Covered,
		TotalCost:     decimal.Zero,
		Shortfall:     plan.Shortfall,
	}
	for _, a := range plan.Allocations {
		lot := a.Lot
		lot.Take(a.Taken, now)
		if err := lotRepo.UpdateRemaining(ctx, lot); err != nil {
			return nil, err
		}

		snapshot := lot.UnitCost
		if in.CostSnapshot != nil {
			snapshot = *in.CostSnapshot
		}
		mov := &entity.StockMovement{
			ID:                   uuid.New().String(),
			TransactionID:        in.TransactionID,
			LotID:                lot.ID,
			ProductID:            lot.ProductID,
			Kind:                 in.Kind,
			SignedQuantity:       a.Taken.Neg(),
			UnitCostSnapshot:     snapshot,
			TotalCost:            a.Taken.Mul(snapshot),
			RemainingWeightAfter: lot.RemainingWeight,
			Timestamp:            now,
			Context:              in.Context,
		}
		if err := movRepo.Append(ctx, mov); err != nil {
			return nil, err
		}

		res.Movements = append(res.Movements, mov)
		res.Takes = append(res.Takes, LotTake{Lot: lot, Taken: a.Taken, UnitCost: lot.UnitCost})
		res.TotalCost = res.TotalCost.Add(a.Taken.Mul(lot.UnitCost))
	}

	if res.Shortfall.GreaterThan(decimal.Zero) {
		// Corrección mayor que el stock del libro: anomalía aceptada, no bloquea.
		e.log.Warn().
			Str("transaction_id", in.TransactionID).
			Str("product_id", in.ProductID).
			Str("requested", in.Quantity.String()).
			Str("shortfall", res.Shortfall.String()).
			Msg("corrección de inventario supera el stock registrado")
	}
	return res, nil
}
