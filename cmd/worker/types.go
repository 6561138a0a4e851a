package main

// SyncMessage is the payload sent from the webhook API -> SQS -> worker.
type SyncMessage struct {
	Action         string `json:"action"` // upsert | refresh | remove
	JiraKey        string `json:"jira_key"`
	InternalItemID string `json:"internal_item_id,omitempty"`
}
