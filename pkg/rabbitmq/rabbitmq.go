package rabbitmq

import (
	"github.com/streadway/amqp"

	"audio_extraction/config"
)

// Initialize new RabbitMQ connection
func NewRabbitMQConn(cfg config.RMQ) (*amqp.Connection, error) {
	return amqp.Dial(cfg.URL)
}
