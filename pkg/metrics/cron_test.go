package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("pickup_reminders", 250*time.Millisecond, nil)
	m.ObserveRun("pickup_reminders", time.Second, errors.New("redis down"))

	if got := testutil.ToFloat64(m.runs.WithLabelValues("pickup_reminders", CronOutcomeSuccess)); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("pickup_reminders", CronOutcomeFailure)); got != 1 {
		t.Fatalf("expected one failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues("pickup_reminders")); got <= 0 {
		t.Fatalf("last success timestamp not set")
	}

	hist := family(t, reg, "surprisebag_cron_job_duration_seconds")
	if got := hist.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
		t.Fatalf("expected 2 duration samples, got %d", got)
	}
}

func TestCronJobMetricsNilIsNoop(t *testing.T) {
	if NewCronJobMetrics(nil) != nil {
		t.Fatalf("nil registerer should yield nil metrics")
	}
	var m *CronJobMetrics
	m.ObserveRun("", time.Second, nil)
}

// family gathers reg and returns the named metric family or fails the test.
func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %q not registered", name)
	return nil
}

// counter returns the value of the sample in family name whose label matches.
func counter(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	for _, metric := range family(t, reg, name).GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %q has no sample with %s=%s", name, label, value)
	return 0
}
