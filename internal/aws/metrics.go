package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const metricsNamespace = "JiraMappingSync"

// Metrics emits per-event counters to CloudWatch. Emission is best-effort;
// callers log and continue on error.
type Metrics struct {
	CW        CloudWatchAPI
	Namespace string
}

// NewMetrics returns a Metrics emitter using the default namespace.
func NewMetrics(cw CloudWatchAPI) *Metrics {
	return &Metrics{
		CW:        cw,
		Namespace: metricsNamespace,
	}
}

// CountEvent records one processed webhook event, dimensioned by the
// classified kind and the reconciliation outcome.
func (m *Metrics) CountEvent(ctx context.Context, kind, outcome string) error {
	one := 1.0
	datum := cwtypes.MetricDatum{
		MetricName: awsString("EventsProcessed"),
		Value:      &one,
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: awsString("Kind"), Value: &kind},
			{Name: awsString("Outcome"), Value: &outcome},
		},
	}

	_, err := m.CW.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &m.Namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
