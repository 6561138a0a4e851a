package event

// Jira webhookEvent discriminator values we act on. Anything else is ignored.
const (
	webhookIssueCreated = "jira:issue_created"
	webhookIssueUpdated = "jira:issue_updated"
	webhookIssueDeleted = "jira:issue_deleted"
)

// Classified event kinds.
const (
	KindCreated = "CREATED"
	KindUpdated = "UPDATED"
	KindDeleted = "DELETED"
	KindIgnored = "IGNORED"
)

// WebhookPayload is the inbound Jira webhook body. The payload is
// partner-controlled; only issue.key is fully mandatory.
type WebhookPayload struct {
	WebhookEvent string       `json:"webhookEvent"`
	Issue        IssuePayload `json:"issue"`
	Changelog    *Changelog   `json:"changelog,omitempty"`
}

// IssuePayload is the issue section of the webhook body.
type IssuePayload struct {
	Key    string       `json:"key" validate:"required"`
	ID     string       `json:"id,omitempty"`
	Fields *IssueFields `json:"fields,omitempty"`
}

type IssueFields struct {
	IssueType IssueType `json:"issuetype"`
}

type IssueType struct {
	Name string `json:"name"`
}

// Changelog lists the field changes that triggered an update event. It is
// used for observability only, never for control flow.
type Changelog struct {
	Items []ChangeItem `json:"items"`
}

type ChangeItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// Event is the closed, typed result of classification. Exactly the fields
// the reconciler needs survive; the raw payload goes no deeper.
type Event struct {
	Kind      string
	Key       string
	IssueID   string       // Created only: Jira's immutable issue id
	IssueType string       // Deleted only: lowercased issue type name
	Changes   []ChangeItem // Updated only: changelog, for logging
}
