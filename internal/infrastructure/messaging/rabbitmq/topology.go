package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "account.events"
	DefaultQueue    = "account.email.q"

	// EmailRoutingKey carries every outgoing account email.
	EmailRoutingKey = "account.email"
)

func dlqName(queue string) string { return queue + ".dlq" }

// declareTopology declares the exchange, the work queue and its dead letter
// queue. Publisher and consumer both call it so either can start first.
// Arguments must match on both sides or the broker answers PRECONDITION_FAILED.
func declareTopology(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}

	dlq := dlqName(queue)
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("dlq declare: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(queue, EmailRoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}
