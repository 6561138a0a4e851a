package mapping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/cloobot/jira-sync-webhook/internal/aws"
)

// ErrStoreUnavailable marks failures where the store itself could not be
// reached, as opposed to the service rejecting a request.
var ErrStoreUnavailable = errors.New("mapping store unavailable")

// DynamoDB caps a TransactWriteItems call at 100 items.
const maxTransactDeletes = 100

// Store persists jira key -> internal item mappings. Every operation is its
// own request/transaction scope; nothing spans multiple calls.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	loc       *time.Location
	nowFunc   func() time.Time
}

// NewStore returns a Store bound to a table. Timestamps are normalized to a
// fixed reference zone so updated_at reads the same for every deployment user.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		loc:       referenceZone(),
		nowFunc:   time.Now,
	}
}

func referenceZone() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	// zoneinfo may be stripped from minimal images
	return time.FixedZone("IST", 5*3600+30*60)
}

func (s *Store) now() string {
	return s.nowFunc().In(s.loc).Format(time.RFC3339)
}

// Insert writes a new mapping record. If the key already exists the existing
// record is left untouched and (false, nil) is returned; duplicate creates
// are a no-op, never an error and never an overwrite.
func (s *Store) Insert(ctx context.Context, jiraKey, jiraIssueID, internalItemID string) (bool, error) {
	rec := Record{
		JiraIssueKey:   jiraKey,
		InternalItemID: internalItemID,
		JiraIssueID:    jiraIssueID,
		UpdatedAt:      s.now(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(jira_issue_key)"),
	}

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, storeErr("put item", err)
	}

	return true, nil
}

// TouchUpdatedAt refreshes updated_at for an existing mapping. Returns
// (false, nil) when no record matches the key.
func (s *Store) TouchUpdatedAt(ctx context.Context, jiraKey string) (bool, error) {
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"jira_issue_key": &types.AttributeValueMemberS{Value: jiraKey},
		},
		UpdateExpression:    awsString("SET updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(jira_issue_key)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ua": &types.AttributeValueMemberS{Value: s.now()},
		},
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, storeErr("update item", err)
	}

	return true, nil
}

// LookupInternalID returns the internal item id mapped to a jira key.
// Not-found is reported through the bool, not as an error; callers branch.
func (s *Store) LookupInternalID(ctx context.Context, jiraKey string) (string, bool, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"jira_issue_key": &types.AttributeValueMemberS{Value: jiraKey},
		},
	})
	if err != nil {
		return "", false, storeErr("get item", err)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return "", false, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec.InternalItemID, true, nil
}

// DeleteMany removes every mapping whose key is in keys, in one
// TransactWriteItems call: either all deletes apply or none do. Deleting a
// key with no record is silently tolerated. Duplicate keys are collapsed and
// the transaction is built in sorted order for determinism.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	set := map[string]struct{}{}
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	if len(set) > maxTransactDeletes {
		return fmt.Errorf("delete set of %d keys exceeds transaction limit of %d", len(set), maxTransactDeletes)
	}

	sorted := make([]string, 0, len(set))
	for k := range set {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	items := make([]types.TransactWriteItem, 0, len(sorted))
	for _, k := range sorted {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: &s.tableName,
				Key: map[string]types.AttributeValue{
					"jira_issue_key": &types.AttributeValueMemberS{Value: k},
				},
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return storeErr("transact delete", err)
	}
	return nil
}

// storeErr separates "the service answered with an error" from "we never
// reached the service"; the latter wraps ErrStoreUnavailable.
func storeErr(op string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %s", op, ErrStoreUnavailable, err)
}

func awsString(s string) *string { return &s }
