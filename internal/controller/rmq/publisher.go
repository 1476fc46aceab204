package rmq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"audio_extraction/config"
	"audio_extraction/entity"
	"audio_extraction/pkg/logger"
	"audio_extraction/pkg/rabbitmq"
)

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends conversion events to a topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	amqpChan amqpChannel
	exchange string
	l        logger.Interface
}

var _ entity.EventPublisher = (*AMQPPublisher)(nil)

func NewAMQPPublisher(cfg config.RMQ, l logger.Interface) (*AMQPPublisher, error) {
	mqConn, err := rabbitmq.NewRabbitMQConn(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "amqp.Dial")
	}
	amqpChan, err := mqConn.Channel()
	if err != nil {
		_ = mqConn.Close()
		return nil, errors.Wrap(err, "amqpConn.Channel")
	}

	p := newPublisher(amqpChan, cfg.Exchange, l)
	p.conn = mqConn

	if err := p.SetupExchange(); err != nil {
		_ = p.Close()
		return nil, err
	}

	return p, nil
}

func newPublisher(ch amqpChannel, exchange string, l logger.Interface) *AMQPPublisher {
	return &AMQPPublisher{amqpChan: ch, exchange: exchange, l: l}
}

// SetupExchange declares the events exchange.
func (p *AMQPPublisher) SetupExchange() error {
	p.l.Info("Declaring exchange: %s", p.exchange)
	err := p.amqpChan.ExchangeDeclare(
		p.exchange,
		exchangeKind,
		exchangeDurable,
		exchangeAutoDelete,
		exchangeInternal,
		exchangeNoWait,
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "Error ch.ExchangeDeclare")
	}
	return nil
}

// Publish message
func (p *AMQPPublisher) Publish(key, contentType, corrId string, body []byte) error {
	p.l.Debug("Publishing message Exchange: %s, RoutingKey: %s", p.exchange, key)

	if err := p.amqpChan.Publish(
		p.exchange,
		key,
		publishMandatory,
		publishImmediate,
		amqp.Publishing{
			ContentType:   contentType,
			DeliveryMode:  amqp.Persistent,
			MessageId:     uuid.New().String(),
			Timestamp:     time.Now(),
			CorrelationId: corrId,
			Body:          body,
		},
	); err != nil {
		return errors.Wrap(err, "ch.Publish")
	}

	return nil
}

func (p *AMQPPublisher) PublishConversion(ctx context.Context, event entity.ConversionEvent) error {
	_, span := otel.Tracer(traceName).Start(ctx, "PublishConversion")
	defer span.End()

	span.SetAttributes(attribute.String("token", event.Token))
	span.SetAttributes(attribute.String("status", event.Status))

	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}

	key := routingKeySucceeded
	if event.Status != entity.ConversionSucceeded {
		key = routingKeyFailed
	}

	return p.Publish(key, "application/json", event.Token, body)
}

// Close closes the channel and, when owned, the connection.
func (p *AMQPPublisher) Close() error {
	if err := p.amqpChan.Close(); err != nil {
		p.l.Error(err, "AMQPPublisher Close")
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
