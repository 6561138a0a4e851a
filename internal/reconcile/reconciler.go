// Package reconcile applies one classified webhook event to the mapping
// store, expanding epic deletions to their children via the tracker.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/cloobot/jira-sync-webhook/internal/event"
)

// Issue type whose deletion cascades to its children.
const containerIssueType = "epic"

const placeholderIDPrefix = "pending-"

// Outcome is one of exactly three response shapes: mutated, acknowledged
// without mutation, or ignored. Failures are errors, not outcomes.
type Outcome string

const (
	OutcomeApplied Outcome = "APPLIED"
	OutcomeNoop    Outcome = "NOOP"
	OutcomeIgnored Outcome = "IGNORED"
)

// Result describes what one event did to the store.
type Result struct {
	Outcome     Outcome
	Kind        string
	Key         string
	DeletedKeys []string // Deleted only: every key removed, sorted
	// CascadeComplete is false when the child lookup failed and only the
	// event's own key was deleted; children may still be mapped.
	CascadeComplete bool
}

// MappingStore is the slice of the mapping store the reconciler mutates.
type MappingStore interface {
	Insert(ctx context.Context, jiraKey, jiraIssueID, internalItemID string) (bool, error)
	TouchUpdatedAt(ctx context.Context, jiraKey string) (bool, error)
	LookupInternalID(ctx context.Context, jiraKey string) (string, bool, error)
	DeleteMany(ctx context.Context, keys []string) error
}

// ChildFinder resolves an epic's children in the external tracker.
type ChildFinder interface {
	FindChildren(ctx context.Context, parentKey string) ([]string, error)
}

// Notifier announces applied mutations to the downstream business system.
type Notifier interface {
	SendSyncMessage(ctx context.Context, body string, attributes map[string]string) error
}

// MetricsEmitter counts processed events.
type MetricsEmitter interface {
	CountEvent(ctx context.Context, kind, outcome string) error
}

// Reconciler holds no state of its own beyond its collaborators; each event
// is an independent, synchronous unit of work.
type Reconciler struct {
	store     MappingStore
	children  ChildFinder
	notifier  Notifier // nil disables downstream sync
	metrics   MetricsEmitter
	newItemID func() string
}

// New wires a Reconciler. notifier and metrics may be nil.
func New(store MappingStore, children ChildFinder, notifier Notifier, metrics MetricsEmitter) *Reconciler {
	return &Reconciler{
		store:    store,
		children: children,
		notifier: notifier,
		metrics:  metrics,
		newItemID: func() string {
			return placeholderIDPrefix + uuid.NewString()
		},
	}
}

// Reconcile applies one event. Store errors abort the event and propagate;
// child-lookup errors degrade the delete to the event's own key.
func (r *Reconciler) Reconcile(ctx context.Context, ev event.Event) (Result, error) {
	var res Result
	var err error

	switch ev.Kind {
	case event.KindCreated:
		res, err = r.applyCreated(ctx, ev)
	case event.KindUpdated:
		res, err = r.applyUpdated(ctx, ev)
	case event.KindDeleted:
		res, err = r.applyDeleted(ctx, ev)
	case event.KindIgnored:
		log.Printf("[reconcile] ignoring event for %s", ev.Key)
		res = Result{Outcome: OutcomeIgnored, Kind: ev.Kind, Key: ev.Key}
	default:
		return Result{}, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if err != nil {
		return Result{}, err
	}

	r.count(ctx, ev.Kind, res.Outcome)
	return res, nil
}

func (r *Reconciler) applyCreated(ctx context.Context, ev event.Event) (Result, error) {
	// the business system has not assigned an item id yet; reserve a
	// placeholder until its provisioning path fills in the real one
	itemID := r.newItemID()

	created, err := r.store.Insert(ctx, ev.Key, ev.IssueID, itemID)
	if err != nil {
		return Result{}, err
	}
	if !created {
		log.Printf("[reconcile] mapping for %s already exists, create is a no-op", ev.Key)
		return Result{Outcome: OutcomeNoop, Kind: ev.Kind, Key: ev.Key}, nil
	}

	log.Printf("[reconcile] mapped %s -> %s", ev.Key, itemID)
	r.notify(ctx, "upsert", ev.Key, itemID)
	return Result{Outcome: OutcomeApplied, Kind: ev.Kind, Key: ev.Key}, nil
}

func (r *Reconciler) applyUpdated(ctx context.Context, ev event.Event) (Result, error) {
	for _, change := range ev.Changes {
		// observability only; renames never alter the mapping
		if strings.EqualFold(change.Field, "summary") {
			log.Printf("[reconcile] %s renamed: %q -> %q", ev.Key, change.FromString, change.ToString)
		}
	}

	touched, err := r.store.TouchUpdatedAt(ctx, ev.Key)
	if err != nil {
		return Result{}, err
	}
	if !touched {
		log.Printf("[reconcile] no mapping for %s, update acknowledged without effect", ev.Key)
		return Result{Outcome: OutcomeNoop, Kind: ev.Kind, Key: ev.Key}, nil
	}

	if itemID, ok, lerr := r.store.LookupInternalID(ctx, ev.Key); lerr == nil && ok {
		r.notify(ctx, "refresh", ev.Key, itemID)
	}
	return Result{Outcome: OutcomeApplied, Kind: ev.Kind, Key: ev.Key}, nil
}

func (r *Reconciler) applyDeleted(ctx context.Context, ev event.Event) (Result, error) {
	keySet := map[string]struct{}{ev.Key: {}}
	cascadeComplete := true

	if ev.IssueType == containerIssueType {
		children, err := r.children.FindChildren(ctx, ev.Key)
		if err != nil {
			// children unknown, not "no children": delete what we know
			// and say so rather than claiming a full cascade
			log.Printf("[reconcile] WARNING: child lookup for epic %s failed, deleting only the epic itself: %v", ev.Key, err)
			cascadeComplete = false
		} else {
			log.Printf("[reconcile] epic %s has %d children to unmap", ev.Key, len(children))
			for _, c := range children {
				keySet[c] = struct{}{}
			}
		}
	}

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// best-effort: include the mapped item id in the removal notice while
	// the record still exists
	itemID, _, _ := r.store.LookupInternalID(ctx, ev.Key)

	if err := r.store.DeleteMany(ctx, keys); err != nil {
		return Result{}, err
	}

	log.Printf("[reconcile] deleted mappings for %v", keys)
	r.notify(ctx, "remove", ev.Key, itemID)
	return Result{
		Outcome:         OutcomeApplied,
		Kind:            ev.Kind,
		Key:             ev.Key,
		DeletedKeys:     keys,
		CascadeComplete: cascadeComplete,
	}, nil
}

// notify publishes a downstream sync message. Failures are logged and
// swallowed: the mapping mutation already committed, and the business-system
// update is simulated by the worker anyway.
func (r *Reconciler) notify(ctx context.Context, action, jiraKey, internalItemID string) {
	if r.notifier == nil {
		return
	}
	body, err := json.Marshal(map[string]string{
		"action":           action,
		"jira_key":         jiraKey,
		"internal_item_id": internalItemID,
	})
	if err != nil {
		log.Printf("[reconcile] marshal sync message: %v", err)
		return
	}
	attrs := map[string]string{
		"action":   action,
		"jira_key": jiraKey,
	}
	if err := r.notifier.SendSyncMessage(ctx, string(body), attrs); err != nil {
		log.Printf("[reconcile] downstream sync publish failed for %s: %v", jiraKey, err)
	}
}

func (r *Reconciler) count(ctx context.Context, kind string, outcome Outcome) {
	if r.metrics == nil {
		return
	}
	if err := r.metrics.CountEvent(ctx, kind, string(outcome)); err != nil {
		log.Printf("[reconcile] metric emission failed: %v", err)
	}
}
