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

// ReconcileUseCase compara el stock teórico con el conteo físico y registra la merma
// como consumo FIFO de tipo inventory-correction. Nunca aumenta stock.
// No es idempotente por sesión: el caller debe evitar enviar dos veces el mismo conteo.
type ReconcileUseCase struct {
	txRunner  TxRunner
	engine    *FIFOEngine
	publisher EventPublisher
	log       *logger.Logger
}

// NewReconcileUseCase construye el caso de uso. publisher puede ser nil.
func NewReconcileUseCase(txRunner TxRunner, engine *FIFOEngine, publisher EventPublisher, log *logger.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{
		txRunner:  txRunner,
		engine:    engine,
		publisher: publisher,
		log:       log.Component("reconciliation"),
	}
}

// ReconcileInput conteo físico de un producto.
type ReconcileInput struct {
	ProductID     string
	CountedWeight decimal.Decimal
	Actor         string
	SessionID     string
	CountDate     *time.Time
}

// ReconcileResult resultado de la conciliación.
// Gain > 0 cuando el conteo supera al teórico: se informa pero no se aplica.
// Uncovered es la parte de la merma que excede el stock abierto del libro.
type ReconcileResult struct {
	TransactionID     string
	ProductID         string
	NoCorrection      bool
	TheoreticalWeight decimal.Decimal
	CountedWeight     decimal.Decimal
	Shortfall         decimal.Decimal
	Gain              decimal.Decimal
	Uncovered         decimal.Decimal
	UnitCostSnapshot  decimal.Decimal
	Movements         []*entity.StockMovement
}

// Reconcile calcula teórico y merma dentro de la misma transacción que aplica la corrección.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if in.CountedWeight.LessThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: el peso contado no puede ser negativo", domain.ErrInvalidInput)
	}
	if err := checkScale("counted_weight", in.CountedWeight, entity.WeightScale); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txID := uuid.New().String()
	var res *ReconcileResult
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error {
		lots, err := lotRepo.ListOpenByProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		theoretical := inventory.TheoreticalWeight(lots)
		out := &ReconcileResult{
			ProductID:         in.ProductID,
			TheoreticalWeight: theoretical,
			CountedWeight:     in.CountedWeight,
			Shortfall:         decimal.Zero,
			Gain:              decimal.Zero,
			Uncovered:         decimal.Zero,
			UnitCostSnapshot:  decimal.Zero,
		}
		shortfall := theoretical.Sub(in.CountedWeight)
		if shortfall.LessThanOrEqual(decimal.Zero) {
			out.NoCorrection = true
			out.Gain = shortfall.Neg()
			res = out
			return nil
		}

		// PMA en el momento de la corrección, para el análisis de márgenes posterior
		wc, err := weightedCostFrom(ctx, lotRepo, in.ProductID, lots)
		if err != nil {
			return err
		}
		snapshot := roundCost(wc.UnitCost)
		r, err := uc.engine.ConsumeInTx(ctx, lotRepo, movRepo, ConsumeInput{
			ProductID:     in.ProductID,
			Quantity:      shortfall,
			Kind:          entity.MovementKindInventoryCorrection,
			Context:       entity.MovementContext{SessionID: in.SessionID, Actor: in.Actor},
			TransactionID: txID,
			CostSnapshot:  &snapshot,
		}, now)
		if err != nil {
			return err
		}
		out.TransactionID = txID
		out.Shortfall = shortfall
		out.Uncovered = r.Shortfall
		out.UnitCostSnapshot = snapshot
		out.Movements = r.Movements
		res = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := uc.log.Info().
		Str("product_id", in.ProductID).
		Str("actor", in.Actor).
		Str("session_id", in.SessionID).
		Str("theoretical", res.TheoreticalWeight.String()).
		Str("counted", res.CountedWeight.String())
	if in.CountDate != nil {
		ev = ev.Time("count_date", *in.CountDate)
	}
	if res.NoCorrection {
		if res.Gain.IsPositive() {
			// Sobrante: no se aplica, queda registrado para auditoría.
			ev.Str("gain", res.Gain.String()).Msg("conteo superior al teórico, sin corrección")
		} else {
			ev.Msg("conteo coincide con el teórico")
		}
		return res, nil
	}
	ev.Str("transaction_id", res.TransactionID).
		Str("shortfall", res.Shortfall.String()).
		Str("uncovered", res.Uncovered.String()).
		Str("unit_cost_snapshot", res.UnitCostSnapshot.String()).
		Msg("merma registrada")

	publish(ctx, uc.publisher, uc.log, EventStockCorrected, StockConsumedEvent{
		TransactionID: res.TransactionID,
		ProductID:     in.ProductID,
		Kind:          entity.MovementKindInventoryCorrection,
		Quantity:      res.Shortfall.Sub(res.Uncovered),
		TotalCost:     res.Shortfall.Sub(res.Uncovered).Mul(res.UnitCostSnapshot),
		Shortfall:     res.Uncovered,
	})
	return res, nil
}
