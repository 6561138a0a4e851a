package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloobot/jira-sync-webhook/internal/aws"
	"github.com/cloobot/jira-sync-webhook/internal/config"
	"github.com/cloobot/jira-sync-webhook/internal/event"
	"github.com/cloobot/jira-sync-webhook/internal/jira"
	"github.com/cloobot/jira-sync-webhook/internal/mapping"
	"github.com/cloobot/jira-sync-webhook/internal/reconcile"
	"github.com/cloobot/jira-sync-webhook/internal/validation"
)

// HandlerConfig groups dependencies for the webhook handler.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	SQSClient        aws.SQSAPI
	CloudWatchClient aws.CloudWatchAPI
	Cfg              *config.Config
}

// RegisterWebhookRoutes wires the reconciliation pipeline and registers
// POST /webhook/jira.
func RegisterWebhookRoutes(r *gin.Engine, hc HandlerConfig) {
	v := validation.New()
	store := mapping.NewStore(hc.DynamoDBClient, hc.Cfg.MappingTable)
	tracker := jira.NewClient(hc.Cfg.JiraBaseURL, hc.Cfg.JiraEmail, hc.Cfg.JiraAPIToken)

	var notifier reconcile.Notifier
	if hc.SQSClient != nil && hc.Cfg.SyncQueueURL != "" {
		notifier = aws.NewPublisher(hc.SQSClient, hc.Cfg.SyncQueueURL)
	}
	var metrics reconcile.MetricsEmitter
	if hc.CloudWatchClient != nil {
		metrics = aws.NewMetrics(hc.CloudWatchClient)
	}

	rec := reconcile.New(store, tracker, notifier, metrics)

	r.POST("/webhook/jira", func(c *gin.Context) {
		ctx := c.Request.Context()

		var payload event.WebhookPayload
		if err := validation.BindAndValidate(c, &payload, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		ev, err := event.Classify(&payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid payload"})
			return
		}

		log.Printf("[webhook] event %s for %s", payload.WebhookEvent, ev.Key)

		res, err := rec.Reconcile(ctx, ev)
		if err != nil {
			if errors.Is(err, mapping.ErrStoreUnavailable) {
				log.Printf("[webhook] mapping store unreachable: %v", err)
			} else {
				log.Printf("[webhook] reconciliation failed for %s: %v", ev.Key, err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal Server Error"})
			return
		}

		switch res.Outcome {
		case reconcile.OutcomeApplied:
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Webhook processed"})
		case reconcile.OutcomeNoop:
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Webhook acknowledged, no mapping changed"})
		case reconcile.OutcomeIgnored:
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Event ignored"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal Server Error"})
		}
	})
}
