package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
)

// Processor applies downstream sync messages to the business system.
// The actual item update is simulated with logging for now; the real
// integration plugs in behind applySync without changing the handler.
type Processor struct{}

// NewProcessor creates a worker processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry, then DLQ.
			log.Printf("[worker] error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg SyncMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.JiraKey == "" {
		return fmt.Errorf("sync message without jira_key: %s", rec.Body)
	}

	return p.applySync(msg)
}

func (p *Processor) applySync(msg SyncMessage) error {
	switch msg.Action {
	case "upsert":
		log.Printf("[worker] simulating item creation for %s (placeholder id %s)", msg.JiraKey, msg.InternalItemID)
	case "refresh":
		log.Printf("[worker] simulating item refresh for %s (item %s)", msg.JiraKey, msg.InternalItemID)
	case "remove":
		log.Printf("[worker] simulating item removal for %s (item %s)", msg.JiraKey, msg.InternalItemID)
	default:
		return fmt.Errorf("unknown sync action %q for %s", msg.Action, msg.JiraKey)
	}
	return nil
}
