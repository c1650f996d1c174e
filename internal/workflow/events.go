package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/libra-dev/deploy-engine/internal/domain"
	"github.com/libra-dev/deploy-engine/internal/logging"
	"github.com/libra-dev/deploy-engine/internal/rabbitmq"
	"github.com/libra-dev/deploy-engine/internal/tracing"
)

// DeploymentEvent is one lifecycle transition of a workflow run, published
// as a supplementary audit trail — notification/CDN systems are out of
// scope for this repo, but may consume this exchange without it depending
// on them.
type DeploymentEvent struct {
	WorkflowID string                  `json:"workflowId"`
	ProjectID  string                  `json:"projectId"`
	Status     domain.DeploymentStatus `json:"status"`
	Step       string                  `json:"step,omitempty"`
	Error      string                  `json:"error,omitempty"`
	OccurredAt time.Time               `json:"occurredAt"`
}

// Publisher emits DeploymentEvents. Implementations must not let a publish
// failure fail the workflow; the workflow logs and continues.
type Publisher interface {
	Publish(ctx context.Context, event DeploymentEvent) error
}

const (
	deploymentExchange = "deploy-engine.deployments"
	deploymentRouteKey = "deployment.transition"
)

// RabbitMQPublisher publishes DeploymentEvents to a fanout/topic exchange.
type RabbitMQPublisher struct {
	conn *rabbitmq.Connection
}

// NewRabbitMQPublisher wires a RabbitMQPublisher against conn.
func NewRabbitMQPublisher(conn *rabbitmq.Connection) *RabbitMQPublisher {
	return &RabbitMQPublisher{conn: conn}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, event DeploymentEvent) error {
	log := logging.FromContext(ctx)

	ctx, span := tracing.FromContext(ctx).Start(ctx, "workflow.publish_event")
	defer span.End()

	ch, err := p.conn.Channel(ctx)
	if err != nil {
		tracing.RecordError(&span, "failed to acquire rabbitmq channel", err)
		return fmt.Errorf("events: channel: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		tracing.RecordError(&span, "failed to marshal deployment event", err)
		return fmt.Errorf("events: marshal: %w", err)
	}

	log.Infof("publishing deployment event workflow=%s status=%s step=%s", event.WorkflowID, event.Status, event.Step)

	err = ch.PublishWithContext(ctx,
		deploymentExchange,
		deploymentRouteKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		})
	if err != nil {
		tracing.RecordError(&span, "failed to publish deployment event", err)
		return fmt.Errorf("events: publish: %w", err)
	}

	return nil
}

// NoopPublisher discards every event. Used where event publishing isn't
// wired (tests, or a deployment without RabbitMQ configured).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, DeploymentEvent) error { return nil }
