// Package messaging conecta el motor de lotes con RabbitMQ: consume las líneas de compra
// del servicio de compras y publica los eventos de lotes y consumos.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/Pescaderia-api/pkg/config"
	"github.com/jhoicas/Pescaderia-api/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchanges usados por el servicio.
const (
	ExchangePurchaseEvents = "purchase.events"
	ExchangeLotEvents      = "lots.events"
	exchangeDeadLetter     = "dlx.events"
)

// ErrClosed la conexión se cerró con Close y no admite reconexión.
var ErrClosed = errors.New("rabbitmq: conexión cerrada definitivamente")

// RabbitMQ gestiona la conexión y el canal AMQP.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
	logger  *logger.Logger
	mu      sync.RWMutex
	closed  bool
}

// New abre la conexión con RabbitMQ.
func New(cfg config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		config: cfg,
		logger: log.Component("rabbitmq"),
	}
	if err := rmq.connect(); err != nil {
		return nil, err
	}
	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	var err error

	r.conn, err = amqp.Dial(r.config.URL)
	if err != nil {
		return fmt.Errorf("conectar a RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		_ = r.conn.Close()
		return fmt.Errorf("abrir canal: %w", err)
	}

	if err := r.channel.Qos(r.config.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("configurar QoS: %w", err)
	}

	r.logger.Info().Msg("conectado a RabbitMQ")
	return nil
}

// Channel devuelve el canal actual.
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close cierra canal y conexión.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("cerrar canal")
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("cerrar conexión: %w", err)
		}
	}
	r.logger.Info().Msg("conexión RabbitMQ cerrada")
	return nil
}

// Healthy indica si la conexión sigue abierta.
func (r *RabbitMQ) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn != nil && !r.conn.IsClosed()
}

// DeclareExchange declara un exchange topic durable.
func (r *RabbitMQ) DeclareExchange(name string) error {
	return r.Channel().ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	)
}

// DeclareQueue declara una cola durable con dead-letter hacia dlx.events.
func (r *RabbitMQ) DeclareQueue(name string) (amqp.Queue, error) {
	return r.Channel().QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange": exchangeDeadLetter,
		},
	)
}

// DeclareDeadLetterQueue declara el exchange dlx.events y la cola dlq.<service>.
func (r *RabbitMQ) DeclareDeadLetterQueue(serviceName string) error {
	ch := r.Channel()
	if err := ch.ExchangeDeclare(exchangeDeadLetter, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declarar DLX: %w", err)
	}
	queueName := fmt.Sprintf("dlq.%s", serviceName)
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declarar DLQ: %w", err)
	}
	if err := ch.QueueBind(queueName, "#", exchangeDeadLetter, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	return nil
}

// BindQueue enlaza una cola a un exchange con un patrón de routing key.
func (r *RabbitMQ) BindQueue(queueName, exchange, routingKey string) error {
	return r.Channel().QueueBind(queueName, routingKey, exchange, false, nil)
}

// Reconnect descarta la conexión actual y reintenta hasta MaxRetries veces.
// Publicadores y consumidores que usan Channel() reciben el canal nuevo.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.conn != nil && !r.conn.IsClosed() {
		_ = r.conn.Close()
	}
	for i := 0; i < r.config.MaxRetries; i++ {
		r.logger.Info().Int("attempt", i+1).Msg("reconectando a RabbitMQ")
		err := r.connect()
		if err == nil {
			return nil
		}
		r.logger.Warn().Err(err).Msg("reconexión fallida")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.config.ReconnectDelay):
		}
	}
	return fmt.Errorf("sin conexión tras %d intentos", r.config.MaxRetries)
}
