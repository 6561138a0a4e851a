package mapping

// Record is one row of the external_to_internal_mapping table.
//
// JiraIssueKey is the human-readable key ("PROJ-123") and the primary key of
// the table. JiraIssueID is Jira's immutable id for the same issue; keys can
// change when issues move between projects, ids cannot. InternalItemID may be
// a "pending-" placeholder until the business system assigns a real id
// through its own provisioning path.
type Record struct {
	JiraIssueKey   string `dynamodbav:"jira_issue_key"` // PK
	InternalItemID string `dynamodbav:"internal_item_id"`
	JiraIssueID    string `dynamodbav:"jira_issue_id,omitempty"`
	UpdatedAt      string `dynamodbav:"updated_at"` // RFC3339, reference zone
}
