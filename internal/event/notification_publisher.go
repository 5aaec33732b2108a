package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"decision-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationPublisher publishes decision and quote events to RabbitMQ.
// Several pool workers publish through it at once, so the counters are
// atomic.
type NotificationPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished atomic.Int64
	messagesFailed    atomic.Int64
	lastPublishNano   atomic.Int64
}

// NewNotificationPublisher creates a new event publisher
func NewNotificationPublisher(conn *RabbitMQConnection) *NotificationPublisher {
	p := &NotificationPublisher{conn: conn}
	p.lastPublishNano.Store(time.Now().UnixNano())
	return p
}

// PublishClaimDecision publishes a committed decision to the decision queue.
func (p *NotificationPublisher) PublishClaimDecision(ctx context.Context, decision *models.ClaimDecision) error {
	ev := ClaimDecisionEvent{
		ClaimID:         decision.ClaimID.String(),
		PolicyID:        decision.PolicyID.String(),
		Status:          decision.Status,
		ClaimableAmount: decision.ClaimableAmount.String(),
		AmountWithheld:  decision.AmountWithheld,
	}
	if decision.ATRObjectKey != nil {
		ev.ATRObjectKey = *decision.ATRObjectKey
	}

	if err := p.publish(ctx, ClaimDecisionQueue, ev); err != nil {
		return err
	}

	slog.Info("Claim decision event published",
		"queue", ClaimDecisionQueue,
		"claim_id", ev.ClaimID,
		"status", ev.Status)
	return nil
}

// PublishPremiumQuote publishes a committed quote to the quote queue.
func (p *NotificationPublisher) PublishPremiumQuote(ctx context.Context, quote *models.PremiumQuote) error {
	ev := PremiumQuoteEvent{
		QuoteID:       quote.ID.String(),
		ApplicationID: quote.ApplicationID,
		TotalPremium:  quote.TotalPremium.String(),
		ValidUntil:    quote.ValidUntil,
	}

	if err := p.publish(ctx, PremiumQuoteQueue, ev); err != nil {
		return err
	}

	slog.Info("Premium quote event published",
		"queue", PremiumQuoteQueue,
		"application_id", ev.ApplicationID)
	return nil
}

func (p *NotificationPublisher) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.messagesFailed.Add(1)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key (queue name)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed.Add(1)
		return fmt.Errorf("failed to publish event to %s: %w", queue, err)
	}

	p.messagesPublished.Add(1)
	p.lastPublishNano.Store(time.Now().UnixNano())
	return nil
}

// Stats reports publish counters for the health endpoint.
func (p *NotificationPublisher) Stats() (published, failed int64, last time.Time) {
	return p.messagesPublished.Load(), p.messagesFailed.Load(), time.Unix(0, p.lastPublishNano.Load())
}
