package messaging

import (
	"context"
	"errors"

	"github.com/jhoicas/Pescaderia-api/internal/application/inventory"
	"github.com/jhoicas/Pescaderia-api/internal/domain"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
)

// LotSyncer lo que el consumidor necesita del caso de uso de sincronización.
type LotSyncer interface {
	SyncPurchaseLine(ctx context.Context, line inventory.PurchaseLine) (*inventory.SyncResult, error)
	DeletePurchaseLine(ctx context.Context, purchaseID, lineID string) (*inventory.SyncResult, error)
}

// PurchaseLineHandlers traduce eventos de líneas de compra a llamadas de sincronización de lotes.
type PurchaseLineHandlers struct {
	syncer  LotSyncer
	retries int
	logger  *logger.Logger
}

// NewPurchaseLineHandlers construye los handlers; retries es el número de intentos ante ErrConflict.
func NewPurchaseLineHandlers(syncer LotSyncer, retries int, log *logger.Logger) *PurchaseLineHandlers {
	return &PurchaseLineHandlers{syncer: syncer, retries: retries, logger: log.Component("purchase-consumer")}
}

// Register asocia los handlers a los tipos de evento del consumidor.
func (h *PurchaseLineHandlers) Register(c *Consumer) {
	c.RegisterHandler(EventPurchaseLineReceived, h.HandleUpsert)
	c.RegisterHandler(EventPurchaseLineUpdated, h.HandleUpsert)
	c.RegisterHandler(EventPurchaseLineDeleted, h.HandleDelete)
}

// HandleUpsert sincroniza la línea recibida o modificada.
func (h *PurchaseLineHandlers) HandleUpsert(ctx context.Context, event *Event) error {
	data, err := decodePurchaseLine(event)
	if err != nil {
		return h.settle(event, err)
	}
	line, err := data.ToPurchaseLine()
	if err != nil {
		return h.settle(event, err)
	}

	var res *inventory.SyncResult
	err = inventory.WithConflictRetry(ctx, h.retries, func() error {
		var syncErr error
		res, syncErr = h.syncer.SyncPurchaseLine(ctx, line)
		return syncErr
	})
	if err != nil {
		return h.settle(event, err)
	}
	h.logger.Debug().
		Str("event_id", event.ID).
		Str("purchase_id", line.PurchaseID).
		Str("line_id", line.LineID).
		Str("action", res.Action).
		Msg("evento de línea de compra aplicado")
	return nil
}

// HandleDelete elimina el lote de la línea borrada.
func (h *PurchaseLineHandlers) HandleDelete(ctx context.Context, event *Event) error {
	data, err := decodePurchaseLine(event)
	if err != nil {
		return h.settle(event, err)
	}
	err = inventory.WithConflictRetry(ctx, h.retries, func() error {
		_, delErr := h.syncer.DeletePurchaseLine(ctx, data.PurchaseID, data.LineID)
		return delErr
	})
	return h.settle(event, err)
}

// settle decide si un error merece reintento. Los errores de negocio (entrada inválida, lote ya
// consumido) se registran y el mensaje se confirma: reintentarlo no cambiaría el resultado.
func (h *PurchaseLineHandlers) settle(event *Event, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrConflict) {
		h.logger.Warn().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("línea de compra rechazada")
		return nil
	}
	return err
}

// NewPurchaseLineConsumer declara la cola del servicio y su DLQ, la enlaza a purchase.events y registra los handlers.
func NewPurchaseLineConsumer(rmq *RabbitMQ, queueName string, handlers *PurchaseLineHandlers, log *logger.Logger) (*Consumer, error) {
	consumer, err := NewConsumer(rmq, queueName, log.Component("consumer"))
	if err != nil {
		return nil, err
	}
	if err := consumer.Subscribe(ExchangePurchaseEvents, "purchase.line.*"); err != nil {
		return nil, err
	}
	handlers.Register(consumer)
	return consumer, nil
}
