package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/iho/fundledger/internal/domain"
)

var tracer = otel.Tracer("github.com/iho/fundledger/internal/usecase")

// outbox writes events in the caller's storage transaction.
type outbox struct {
	repo  OutboxRepository
	idGen IDGenerator
}

func (o outbox) emit(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload map[string]any, now time.Time) error {
	if o.repo == nil {
		return nil
	}

	return o.repo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            o.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
		Published:     false,
	})
}
