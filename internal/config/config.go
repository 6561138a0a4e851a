package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the webhook needs beyond AWS credentials.
// It is loaded once in main and passed by reference; core packages never
// read the environment themselves.
type Config struct {
	MappingTable string // DynamoDB table holding jira key -> internal item mappings
	JiraBaseURL  string // e.g. https://example.atlassian.net
	JiraEmail    string
	JiraAPIToken string
	SyncQueueURL string // optional; empty disables downstream sync messages
}

// MissingError reports every required variable that was absent, so a bad
// deployment fails once with the full list instead of one variable at a time.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Vars, ", "))
}

// Load reads configuration from the environment, after loading a local .env
// file when present (development convenience; absence is not an error).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MappingTable: os.Getenv("MAPPING_TABLE"),
		JiraBaseURL:  strings.TrimRight(os.Getenv("JIRA_BASE_URL"), "/"),
		JiraEmail:    os.Getenv("JIRA_EMAIL"),
		JiraAPIToken: os.Getenv("JIRA_API_TOKEN"),
		SyncQueueURL: os.Getenv("SYNC_QUEUE_URL"),
	}

	var missing []string
	if cfg.MappingTable == "" {
		missing = append(missing, "MAPPING_TABLE")
	}
	if cfg.JiraBaseURL == "" {
		missing = append(missing, "JIRA_BASE_URL")
	}
	if cfg.JiraEmail == "" {
		missing = append(missing, "JIRA_EMAIL")
	}
	if cfg.JiraAPIToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if len(missing) > 0 {
		return nil, &MissingError{Vars: missing}
	}

	return cfg, nil
}
