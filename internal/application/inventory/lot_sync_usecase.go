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

// Acciones devueltas por la sincronización de líneas de compra.
const (
	SyncActionCreated   = "created"
	SyncActionUpdated   = "updated"
	SyncActionUnchanged = "unchanged"
	SyncActionDeleted   = "deleted"
	SyncActionNone      = "none"
)

// PurchaseLine línea de compra ya normalizada por la capa de traducción (peso único en kg).
type PurchaseLine struct {
	PurchaseID string
	LineID     string
	ProductID  string
	Received   bool
	WeightKg   decimal.Decimal
	UnitCost   decimal.Decimal
	ReceivedAt time.Time
	Provenance entity.Provenance
}

// SyncResult resultado de sincronizar una línea.
type SyncResult struct {
	Action string
	Lot    *entity.Lot
	// PMA del producto incluyendo el lote recién creado; nil si no se creó lote.
	Weighted *inventory.WeightedCost
}

// LotSyncUseCase refleja el ciclo de vida de las líneas de compra en el almacén de lotes.
// Una línea recibida con peso crea o actualiza exactamente un lote (clave purchaseID+lineID).
type LotSyncUseCase struct {
	txRunner  TxRunner
	publisher EventPublisher
	log       *logger.Logger
}

// NewLotSyncUseCase construye el caso de uso. publisher puede ser nil.
func NewLotSyncUseCase(txRunner TxRunner, publisher EventPublisher, log *logger.Logger) *LotSyncUseCase {
	return &LotSyncUseCase{txRunner: txRunner, publisher: publisher, log: log.Component("lot-sync")}
}

// SyncPurchaseLine crea, actualiza o elimina el lote de la línea según su estado.
// Línea no recibida o con peso cero equivale a borrarla.
func (uc *LotSyncUseCase) SyncPurchaseLine(ctx context.Context, line PurchaseLine) (*SyncResult, error) {
	if line.PurchaseID == "" || line.LineID == "" {
		return nil, fmt.Errorf("%w: purchase_id y line_id requeridos", domain.ErrInvalidInput)
	}
	if !line.Received || !line.WeightKg.GreaterThan(decimal.Zero) {
		return uc.DeletePurchaseLine(ctx, line.PurchaseID, line.LineID)
	}
	if line.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if line.UnitCost.LessThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
	}
	if err := checkScale("weight_kg", line.WeightKg, entity.WeightScale); err != nil {
		return nil, err
	}
	if err := checkScale("unit_cost", line.UnitCost, entity.CostScale); err != nil {
		return nil, err
	}
	createdAt := line.ReceivedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var res *SyncResult
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		_ repository.StockMovementRepository,
	) error {
		existing, err := lotRepo.GetByPurchaseLine(ctx, line.PurchaseID, line.LineID)
		if err != nil {
			return err
		}
		if existing == nil {
			lots, err := lotRepo.ListOpenByProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			current := inventory.WeightedAverage(lots, nil)
			blended := inventory.WeightedCost{
				TotalOpenWeight: current.TotalOpenWeight.Add(line.WeightKg),
				UnitCost:        inventory.CostCalculator(current.TotalOpenWeight, current.UnitCost, line.WeightKg, line.UnitCost),
			}
			lot := &entity.Lot{
				ID:              uuid.New().String(),
				ProductID:       line.ProductID,
				SourceType:      entity.LotSourcePurchase,
				InitialWeight:   line.WeightKg,
				RemainingWeight: line.WeightKg,
				UnitCost:        line.UnitCost,
				CreatedAt:       createdAt,
				Provenance:      line.Provenance,
				PurchaseID:      line.PurchaseID,
				PurchaseLineID:  line.LineID,
			}
			if err := lotRepo.Create(ctx, lot); err != nil {
				return err
			}
			res = &SyncResult{Action: SyncActionCreated, Lot: lot, Weighted: &blended}
			return nil
		}

		if existing.IsConsumed() {
			// Lote con consumo: solo se acepta cambiar la trazabilidad.
			if existing.ProductID != line.ProductID ||
				!existing.InitialWeight.Equal(line.WeightKg) ||
				!existing.UnitCost.Equal(line.UnitCost) {
				return fmt.Errorf("%w: lote %s ya consumido, no se puede cambiar producto, peso o costo",
					domain.ErrConflict, existing.ID)
			}
			existing.Provenance = line.Provenance
			if err := lotRepo.Replace(ctx, existing); err != nil {
				return err
			}
			res = &SyncResult{Action: SyncActionUpdated, Lot: existing}
			return nil
		}

		existing.ProductID = line.ProductID
		existing.InitialWeight = line.WeightKg
		existing.RemainingWeight = line.WeightKg
		existing.UnitCost = line.UnitCost
		existing.Provenance = line.Provenance
		existing.Closed = false
		existing.ClosedAt = nil
		if err := lotRepo.Replace(ctx, existing); err != nil {
			return err
		}
		res = &SyncResult{Action: SyncActionUpdated, Lot: existing}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("action", res.Action).
		Str("lot_id", res.Lot.ID).
		Str("purchase_id", line.PurchaseID).
		Str("line_id", line.LineID).
		Str("weight", line.WeightKg.String()).
		Msg("línea de compra sincronizada")

	if res.Action == SyncActionCreated {
		uc.log.Debug().
			Str("product_id", line.ProductID).
			Str("open_weight", res.Weighted.TotalOpenWeight.String()).
			Str("weighted_unit_cost", res.Weighted.UnitCost.String()).
			Msg("PMA tras la recepción")
		publish(ctx, uc.publisher, uc.log, EventLotCreated, LotCreatedEvent{
			LotID:            res.Lot.ID,
			ProductID:        res.Lot.ProductID,
			SourceType:       res.Lot.SourceType,
			Weight:           res.Lot.InitialWeight,
			UnitCost:         res.Lot.UnitCost,
			CreatedAt:        res.Lot.CreatedAt,
			WeightedUnitCost: &res.Weighted.UnitCost,
			OpenWeight:       &res.Weighted.TotalOpenWeight,
		})
	}
	return res, nil
}

// DeletePurchaseLine elimina el lote de la línea. Rechaza con ErrConflict un lote ya consumido
// (remaining < initial) para no perder historial. Si no existe lote no hace nada.
func (uc *LotSyncUseCase) DeletePurchaseLine(ctx context.Context, purchaseID, lineID string) (*SyncResult, error) {
	if purchaseID == "" || lineID == "" {
		return nil, fmt.Errorf("%w: purchase_id y line_id requeridos", domain.ErrInvalidInput)
	}
	var deleted *entity.Lot
	err := uc.txRunner.Run(ctx, func(
		lotRepo repository.LotRepository,
		_ repository.StockMovementRepository,
	) error {
		lot, err := lotRepo.GetByPurchaseLine(ctx, purchaseID, lineID)
		if err != nil {
			return err
		}
		if lot == nil {
			return nil
		}
		if lot.IsConsumed() || lot.Closed {
			return fmt.Errorf("%w: lote %s ya consumido (%s de %s kg)",
				domain.ErrConflict, lot.ID, lot.RemainingWeight.String(), lot.InitialWeight.String())
		}
		if err := lotRepo.Delete(ctx, lot.ID); err != nil {
			return err
		}
		deleted = lot
		return nil
	})
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return &SyncResult{Action: SyncActionNone}, nil
	}

	uc.log.Info().
		Str("lot_id", deleted.ID).
		Str("purchase_id", purchaseID).
		Str("line_id", lineID).
		Msg("lote de compra eliminado")
	publish(ctx, uc.publisher, uc.log, EventLotDeleted, LotDeletedEvent{
		LotID:          deleted.ID,
		ProductID:      deleted.ProductID,
		PurchaseID:     purchaseID,
		PurchaseLineID: lineID,
	})
	return &SyncResult{Action: SyncActionDeleted, Lot: deleted}, nil
}
