package lambda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/dwsmith1983/actorrelay/pkg/types"
)

const (
	// EventSource is the source of every outcome event.
	EventSource = "actorrelay"
	// EventDetailType is the detail-type of every outcome event.
	EventDetailType = "Actor Run Finished"
)

// EventPublisher puts outcome events on an EventBridge bus.
type EventPublisher struct {
	client EventBridgeAPI
	bus    string
}

// NewEventPublisher creates a publisher for the named bus.
func NewEventPublisher(client EventBridgeAPI, bus string) *EventPublisher {
	return &EventPublisher{client: client, bus: bus}
}

// PublishOutcome puts one event. A rejected entry is reported as an error.
func (p *EventPublisher) PublishOutcome(ctx context.Context, evt types.OutcomeEvent) error {
	detail, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshaling outcome event: %w", err)
	}
	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{{
			EventBusName: aws.String(p.bus),
			Source:       aws.String(EventSource),
			DetailType:   aws.String(EventDetailType),
			Detail:       aws.String(string(detail)),
		}},
	})
	if err != nil {
		return fmt.Errorf("putting outcome event: %w", err)
	}
	if out.FailedEntryCount > 0 {
		msg := "unknown error"
		if len(out.Entries) > 0 {
			msg = aws.ToString(out.Entries[0].ErrorCode) + ": " + aws.ToString(out.Entries[0].ErrorMessage)
		}
		return fmt.Errorf("outcome event rejected: %s", msg)
	}
	return nil
}

