package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/Pescaderia-api/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler procesa un evento. Un error provoca reencolado (una vez) o dead-letter.
type MessageHandler func(ctx context.Context, event *Event) error

// binding enlace de la cola a un exchange, repetido tras cada reconexión.
type binding struct {
	exchange   string
	routingKey string
}

// Consumer consume una cola y despacha por tipo de evento.
// Si el canal se cierra reconecta, redeclara la topología y sigue consumiendo.
type Consumer struct {
	rmq        *RabbitMQ
	queueName  string
	handlers   map[string]MessageHandler
	bindings   []binding
	retryDelay time.Duration
	logger     *logger.Logger

	reconnect func(ctx context.Context) error
	declare   func() error
	open      func() (<-chan amqp.Delivery, error)
}

// NewConsumer declara la cola y su dead-letter queue y construye el consumidor.
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	c := &Consumer{
		rmq:        rmq,
		queueName:  queueName,
		handlers:   make(map[string]MessageHandler),
		retryDelay: rmq.config.ReconnectDelay,
		logger:     log,
	}
	c.reconnect = rmq.Reconnect
	c.declare = c.declareTopology
	c.open = c.consume
	if err := c.declareQueues(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) declareQueues() error {
	if err := c.rmq.DeclareDeadLetterQueue(c.queueName); err != nil {
		return err
	}
	if _, err := c.rmq.DeclareQueue(c.queueName); err != nil {
		return fmt.Errorf("declarar cola %s: %w", c.queueName, err)
	}
	return nil
}

func (c *Consumer) bind(b binding) error {
	if err := c.rmq.DeclareExchange(b.exchange); err != nil {
		return fmt.Errorf("declarar exchange: %w", err)
	}
	if err := c.rmq.BindQueue(c.queueName, b.exchange, b.routingKey); err != nil {
		return fmt.Errorf("bind cola: %w", err)
	}
	return nil
}

// declareTopology repite colas y enlaces sobre el canal nuevo.
func (c *Consumer) declareTopology() error {
	if err := c.declareQueues(); err != nil {
		return err
	}
	for _, b := range c.bindings {
		if err := c.bind(b); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe enlaza la cola al exchange con el patrón dado.
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	b := binding{exchange: exchange, routingKey: routingKeyPattern}
	if err := c.bind(b); err != nil {
		return err
	}
	c.bindings = append(c.bindings, b)
	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("suscrito al exchange")
	return nil
}

// RegisterHandler registra el handler de un tipo de evento.
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

func (c *Consumer) consume() (<-chan amqp.Delivery, error) {
	return c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
}

// Start empieza a consumir en una goroutine hasta que ctx se cancele.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.open()
	if err != nil {
		return fmt.Errorf("iniciar consumo: %w", err)
	}
	c.logger.Info().Str("queue", c.queueName).Msg("consumidor iniciado")
	go c.run(ctx, msgs)
	return nil
}

func (c *Consumer) run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Str("queue", c.queueName).Msg("consumidor detenido")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn().Str("queue", c.queueName).Msg("canal de mensajes cerrado")
				msgs, ok = c.resume(ctx)
				if !ok {
					return
				}
				continue
			}
			c.handleMessage(ctx, msg)
		}
	}
}

// resume reconecta hasta obtener un canal de entregas nuevo. Devuelve false si ctx se cancela
// o la conexión se cerró con Close.
func (c *Consumer) resume(ctx context.Context) (<-chan amqp.Delivery, bool) {
	for {
		err := c.reconnect(ctx)
		if err == nil {
			err = c.declare()
		}
		if err == nil {
			var msgs <-chan amqp.Delivery
			if msgs, err = c.open(); err == nil {
				c.logger.Info().Str("queue", c.queueName).Msg("consumidor reanudado")
				return msgs, true
			}
		}
		if errors.Is(err, ErrClosed) || ctx.Err() != nil {
			c.logger.Info().Str("queue", c.queueName).Msg("consumidor detenido")
			return nil, false
		}
		c.logger.Error().Err(err).Str("queue", c.queueName).Msg("reanudar consumo")
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(c.retryDelay):
		}
	}
}

// outcome decisión sobre un mensaje procesado.
type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDeadLetter
)

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var err error
	switch c.process(ctx, msg.Body, msg.Redelivered) {
	case outcomeAck:
		err = msg.Ack(false)
	case outcomeRequeue:
		err = msg.Nack(false, true)
	case outcomeDeadLetter:
		err = msg.Reject(false)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("queue", c.queueName).Msg("confirmar mensaje")
	}
}

// process decodifica y despacha. Un fallo se reencola una sola vez; si el mensaje ya fue
// reentregado va a la dead-letter queue.
func (c *Consumer) process(ctx context.Context, body []byte, redelivered bool) outcome {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queueName).Msg("evento mal formado")
		return outcomeDeadLetter
	}
	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().Str("event_type", event.Type).Msg("sin handler para el tipo de evento")
		return outcomeAck
	}

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Bool("redelivered", redelivered).
			Msg("error procesando evento")
		if redelivered {
			return outcomeDeadLetter
		}
		return outcomeRequeue
	}
	return outcomeAck
}
