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

// TransformUseCase convierte uno o varios productos origen en un único lote derivado
// (fileteado, porcionado, recetas), propagando costo y trazabilidad.
type TransformUseCase struct {
	txRunner  TxRunner
	engine    *FIFOEngine
	publisher EventPublisher
	log       *logger.Logger
}

// NewTransformUseCase construye el caso de uso. publisher puede ser nil.
func NewTransformUseCase(txRunner TxRunner, engine *FIFOEngine, publisher EventPublisher, log *logger.Logger) *TransformUseCase {
	return &TransformUseCase{
		txRunner:  txRunner,
		engine:    engine,
		publisher: publisher,
		log:       log.Component("transformation"),
	}
}

// TransformSource producto origen y cantidad a consumir.
type TransformSource struct {
	ProductID string
	Quantity  decimal.Decimal
}

// TransformInput entrada de una transformación.
// SourceType vacío: "transformation" con un origen, "recipe" con varios.
type TransformInput struct {
	Sources              []TransformSource
	DestinationProductID string
	ProducedQuantity     decimal.Decimal
	SourceType           string
	Context              entity.MovementContext
}

// TransformResult lote creado y movimientos de la transformación.
type TransformResult struct {
	TransactionID string
	Lot           *entity.Lot
	Movements     []*entity.StockMovement
	TotalCost     decimal.Decimal
}

func (in TransformInput) validate() error {
	if len(in.Sources) == 0 {
		return fmt.Errorf("%w: al menos un producto origen", domain.ErrInvalidInput)
	}
	for _, s := range in.Sources {
		if s.ProductID == "" || !s.Quantity.GreaterThan(decimal.Zero) {
			return fmt.Errorf("%w: origen con producto vacío o cantidad no positiva", domain.ErrInvalidInput)
		}
		if err := checkScale("quantity", s.Quantity, entity.WeightScale); err != nil {
			return err
		}
	}
	if in.DestinationProductID == "" {
		return fmt.Errorf("%w: producto destino requerido", domain.ErrInvalidInput)
	}
	// También evita la división por cero del costo unitario destino.
	if !in.ProducedQuantity.GreaterThan(decimal.Zero) {
		return fmt.Errorf("%w: la cantidad producida debe ser positiva", domain.ErrInvalidInput)
	}
	if err := checkScale("produced_quantity", in.ProducedQuantity, entity.WeightScale); err != nil {
		return err
	}
	switch in.SourceType {
	case "", entity.LotSourceTransformation, entity.LotSourceRecipe:
	default:
		return fmt.Errorf("%w: source_type %q", domain.ErrInvalidInput, in.SourceType)
	}
	return nil
}

// Transform consume todos los orígenes con transformation-out y crea el lote derivado en una sola
// transacción. Si algún origen no tiene stock suficiente no se crea el lote ni se confirma ningún
// movimiento: el costo de los orígenes ya procesados no se filtra.
func (uc *TransformUseCase) Transform(ctx context.Context, in TransformInput) (*TransformResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = entity.LotSourceTransformation
		if len(in.Sources) > 1 {
			sourceType = entity.LotSourceRecipe
		}
	}

	now := time.Now().UTC()
	txID := uuid.New().String()
	lotID := uuid.New().String()
	movCtx := in.Context
	movCtx.TransformationID = lotID

	var res *TransformResult
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error {
		out := &TransformResult{TransactionID: txID, TotalCost: decimal.Zero}
		var (
			composition   []entity.CompositionEntry
			contributions []inventory.Contribution
		)
		for _, src := range in.Sources {
			r, err := uc.engine.ConsumeInTx(ctx, lotRepo, movRepo, ConsumeInput{
				ProductID:     src.ProductID,
				Quantity:      src.Quantity,
				Kind:          entity.MovementKindTransformationOut,
				Context:       movCtx,
				TransactionID: txID,
			}, now)
			if err != nil {
				return err
			}
			out.TotalCost = out.TotalCost.Add(r.TotalCost)
			out.Movements = append(out.Movements, r.Movements...)
			for _, t := range r.Takes {
				composition = append(composition, entity.CompositionEntry{
					ContributingLotID: t.Lot.ID,
					QuantityTaken:     t.Taken,
					UnitCostAtTime:    t.UnitCost,
				})
				contributions = append(contributions, inventory.Contribution{Lot: t.Lot, Quantity: t.Taken})
			}
		}

		lot := &entity.Lot{
			ID:              lotID,
			ProductID:       in.DestinationProductID,
			SourceType:      sourceType,
			InitialWeight:   in.ProducedQuantity,
			RemainingWeight: in.ProducedQuantity,
			UnitCost:        roundCost(out.TotalCost.Div(in.ProducedQuantity)),
			CreatedAt:       now,
			Provenance:      inventory.MergeProvenance(contributions),
			Composition:     composition,
		}
		if err := lotRepo.Create(ctx, lot); err != nil {
			return err
		}
		mov := &entity.StockMovement{
			ID:                   uuid.New().String(),
			TransactionID:        txID,
			LotID:                lot.ID,
			ProductID:            lot.ProductID,
			Kind:                 entity.MovementKindTransformationIn,
			SignedQuantity:       in.ProducedQuantity,
			UnitCostSnapshot:     lot.UnitCost,
			TotalCost:            out.TotalCost,
			RemainingWeightAfter: lot.RemainingWeight,
			Timestamp:            now,
			Context:              movCtx,
		}
		if err := movRepo.Append(ctx, mov); err != nil {
			return err
		}
		out.Lot = lot
		out.Movements = append(out.Movements, mov)
		res = out
		return nil
	})
	if err != nil {
		uc.log.Debug().Err(err).Str("destination_product_id", in.DestinationProductID).Msg("transformación revertida")
		return nil, err
	}

	uc.log.Info().
		Str("transaction_id", txID).
		Str("lot_id", res.Lot.ID).
		Str("destination_product_id", in.DestinationProductID).
		Str("source_type", sourceType).
		Str("produced", in.ProducedQuantity.String()).
		Str("unit_cost", res.Lot.UnitCost.String()).
		Msg("transformación confirmada")

	publish(ctx, uc.publisher, uc.log, EventLotCreated, LotCreatedEvent{
		LotID:      res.Lot.ID,
		ProductID:  res.Lot.ProductID,
		SourceType: res.Lot.SourceType,
		Weight:     res.Lot.InitialWeight,
		UnitCost:   res.Lot.UnitCost,
		CreatedAt:  res.Lot.CreatedAt,
	})
	return res, nil
}
