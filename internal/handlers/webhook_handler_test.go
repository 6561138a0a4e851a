package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-gonic/gin"

	"github.com/cloobot/jira-sync-webhook/internal/config"
)

// tableMock is just enough DynamoDB for the mapping store's four operations.
type tableMock struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newTableMock(keys ...string) *tableMock {
	m := &tableMock{items: map[string]map[string]types.AttributeValue{}}
	for _, k := range keys {
		m.items[k] = map[string]types.AttributeValue{
			"jira_issue_key":   &types.AttributeValueMemberS{Value: k},
			"internal_item_id": &types.AttributeValueMemberS{Value: "item-" + k},
			"updated_at":       &types.AttributeValueMemberS{Value: "2024-01-01T00:00:00+05:30"},
		}
	}
	return m
}

func (m *tableMock) pk(attrs map[string]types.AttributeValue) string {
	if s, ok := attrs["jira_issue_key"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *tableMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.pk(params.Item)
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, "attribute_not_exists") {
		if _, ok := m.items[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *tableMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[m.pk(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *tableMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.pk(params.Key)
	item, ok := m.items[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if v, present := params.ExpressionAttributeValues[":ua"]; present {
		item["updated_at"] = v
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *tableMock) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range params.TransactItems {
		if it.Delete == nil {
			return nil, errors.New("unexpected transact item")
		}
		delete(m.items, m.pk(it.Delete.Key))
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func newTestRouter(t *testing.T, mock *tableMock, jiraSrv *httptest.Server) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterWebhookRoutes(r, HandlerConfig{
		DynamoDBClient: mock,
		Cfg: &config.Config{
			MappingTable: "external_to_internal_mapping",
			JiraBaseURL:  jiraSrv.URL,
			JiraEmail:    "bot@example.com",
			JiraAPIToken: "token-123",
		},
	})
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/jira", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jiraReturning(t *testing.T, childKeys ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := make([]string, 0, len(childKeys))
		for _, k := range childKeys {
			parts = append(parts, `{"key":"`+k+`"}`)
		}
		_, _ = w.Write([]byte(`{"issues":[` + strings.Join(parts, ",") + `]}`))
	}))
}

func TestWebhook_EpicDeleteCascades(t *testing.T) {
	mock := newTableMock("PROJ-10", "PROJ-11", "PROJ-12", "PROJ-99")
	jiraSrv := jiraReturning(t, "PROJ-11", "PROJ-12")
	defer jiraSrv.Close()
	r := newTestRouter(t, mock, jiraSrv)

	w := post(r, `{"webhookEvent":"jira:issue_deleted","issue":{"key":"PROJ-10","fields":{"issuetype":{"name":"Epic"}}}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if len(mock.items) != 1 {
		t.Fatalf("expected only PROJ-99 to remain, got %v", mock.items)
	}
	if _, ok := mock.items["PROJ-99"]; !ok {
		t.Fatal("PROJ-99 should survive")
	}
}

func TestWebhook_MissingKeyRejected(t *testing.T) {
	mock := newTableMock("PROJ-1")
	jiraSrv := jiraReturning(t)
	defer jiraSrv.Close()
	r := newTestRouter(t, mock, jiraSrv)

	w := post(r, `{"webhookEvent":"jira:issue_updated","issue":{}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Invalid payload") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if len(mock.items) != 1 {
		t.Fatal("invalid payload must not mutate the store")
	}
}

func TestWebhook_UnknownEventIgnored(t *testing.T) {
	mock := newTableMock("PROJ-1")
	jiraSrv := jiraReturning(t)
	defer jiraSrv.Close()
	r := newTestRouter(t, mock, jiraSrv)

	w := post(r, `{"webhookEvent":"jira:worklog_updated","issue":{"key":"PROJ-1"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Event ignored") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if len(mock.items) != 1 {
		t.Fatal("ignored event must not mutate the store")
	}
}

func TestWebhook_CreateThenDuplicate(t *testing.T) {
	mock := newTableMock()
	jiraSrv := jiraReturning(t)
	defer jiraSrv.Close()
	r := newTestRouter(t, mock, jiraSrv)

	body := `{"webhookEvent":"jira:issue_created","issue":{"key":"PROJ-5","id":"10005"}}`
	if w := post(r, body); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Webhook processed") {
		t.Fatalf("first create: %d %s", w.Code, w.Body.String())
	}
	if w := post(r, body); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "no mapping changed") {
		t.Fatalf("duplicate create: %d %s", w.Code, w.Body.String())
	}
	if len(mock.items) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(mock.items))
	}
}
