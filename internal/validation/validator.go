package validation

import (
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/cloobot/jira-sync-webhook/internal/event"
)

// New returns a configured validator with webhook payload rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// issue.key must survive trimming, not just be non-empty
	v.RegisterStructValidation(webhookPayloadValidation, event.WebhookPayload{})

	return v
}

func webhookPayloadValidation(sl validatorv10.StructLevel) {
	p := sl.Current().Interface().(event.WebhookPayload)

	if strings.TrimSpace(p.Issue.Key) == "" {
		sl.ReportError(p.Issue.Key, "issue.key", "Key", "issue_key_blank", "")
	}
}
