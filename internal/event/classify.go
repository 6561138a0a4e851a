package event

import (
	"errors"
	"strings"
)

// ErrMissingIssueKey rejects payloads without an issue key; the key is the
// only field every event must carry.
var ErrMissingIssueKey = errors.New("payload has no issue key")

// Classify turns a raw webhook payload into one of the typed event variants.
// Unrecognized webhookEvent values classify as KindIgnored rather than
// failing: the tracker emits many event types this service does not track.
func Classify(p *WebhookPayload) (Event, error) {
	key := strings.TrimSpace(p.Issue.Key)
	if key == "" {
		return Event{}, ErrMissingIssueKey
	}

	switch p.WebhookEvent {
	case webhookIssueCreated:
		return Event{
			Kind:    KindCreated,
			Key:     key,
			IssueID: p.Issue.ID,
		}, nil

	case webhookIssueUpdated:
		ev := Event{
			Kind: KindUpdated,
			Key:  key,
		}
		if p.Changelog != nil {
			ev.Changes = p.Changelog.Items
		}
		return ev, nil

	case webhookIssueDeleted:
		ev := Event{
			Kind: KindDeleted,
			Key:  key,
		}
		if p.Issue.Fields != nil {
			// absent issue type means "not a container", not an error
			ev.IssueType = strings.ToLower(strings.TrimSpace(p.Issue.Fields.IssueType.Name))
		}
		return ev, nil

	default:
		return Event{
			Kind: KindIgnored,
			Key:  key,
		}, nil
	}
}
