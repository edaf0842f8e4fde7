package metrics

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"priceupload/logger"
)

func quietLogger() *logger.Log {
	log := logger.Logger()
	log.SetOutput(io.Discard)
	return log
}

func TestEmitMetricDispatchesToHandlers(t *testing.T) {
	var got []Metric
	id := RegisterMetricHandler(func(m Metric) { got = append(got, m) })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	fields := logger.Fields{"run_id": "abc"}
	EmitMetric(quietLogger(), "pipeline", ProductsUploaded, 42, "", fields)
	fields["run_id"] = "changed"

	if len(got) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(got))
	}
	m := got[0]
	if m.Name != ProductsUploaded || m.Value != 42 || m.Type != "counter" || m.Component != "pipeline" {
		t.Fatalf("unexpected metric: %+v", m)
	}
	if m.Fields["run_id"] != "abc" {
		t.Fatalf("fields must be copied, got %v", m.Fields["run_id"])
	}
}

func TestEmitMetricIgnoresEmptyName(t *testing.T) {
	calls := 0
	id := RegisterMetricHandler(func(Metric) { calls++ })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	EmitMetric(quietLogger(), "pipeline", "", 1, "gauge", nil)
	if calls != 0 {
		t.Fatalf("expected no dispatch, got %d", calls)
	}
}

func TestUnregisterMetricHandler(t *testing.T) {
	calls := 0
	id := RegisterMetricHandler(func(Metric) { calls++ })
	UnregisterMetricHandler(id)

	EmitMetric(quietLogger(), "pipeline", BatchesSubmitted, 3, "", nil)
	if calls != 0 {
		t.Fatalf("expected no calls after unregister, got %d", calls)
	}
	if RegisterMetricHandler(nil) != 0 {
		t.Fatalf("nil handler must not be registered")
	}
}

func TestEmitMetricPublishesToCloudWatch(t *testing.T) {
	prev := cwState.Load()
	cwState.Store(&cloudWatchState{client: &cloudwatch.Client{}, namespace: "Test"})
	t.Cleanup(func() { cwState.Store(prev) })

	var published [][]cwtypes.MetricDatum
	publishMetricsFunc = func(_ context.Context, state *cloudWatchState, data []cwtypes.MetricDatum) {
		if state.namespace != "Test" {
			t.Errorf("unexpected namespace %q", state.namespace)
		}
		published = append(published, data)
	}
	t.Cleanup(func() { publishMetricsFunc = publishMetrics })

	if !Enabled() {
		t.Fatalf("expected CloudWatch to be enabled")
	}

	EmitMetric(quietLogger(), "uploader", UploadDurationMs, int64(1500), "gauge", logger.Fields{"unit": "milliseconds", "run_id": "r1", "batch": 3})
	EmitMetric(quietLogger(), "uploader", ChecksumCorrect, true, "gauge", nil)
	EmitMetric(quietLogger(), "uploader", "label", "text", "gauge", nil)

	if len(published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(published))
	}

	datum := published[0][0]
	if *datum.MetricName != UploadDurationMs || *datum.Value != 1500 || datum.Unit != cwtypes.StandardUnitMilliseconds {
		t.Fatalf("unexpected datum: %+v", datum)
	}
	dims := map[string]string{}
	for _, d := range datum.Dimensions {
		dims[*d.Name] = *d.Value
	}
	if len(dims) != 2 || dims["component"] != "uploader" || dims["run_id"] != "r1" {
		t.Fatalf("unexpected dimensions: %v", dims)
	}

	if v := *published[1][0].Value; v != 1 {
		t.Fatalf("expected true to publish as 1, got %v", v)
	}
	if published[1][0].Unit != cwtypes.StandardUnitCount {
		t.Fatalf("expected default unit Count, got %v", published[1][0].Unit)
	}
}

func TestEmitMetricWithoutClientDoesNotPublish(t *testing.T) {
	prev := cwState.Load()
	cwState.Store(&cloudWatchState{namespace: "Test"})
	t.Cleanup(func() { cwState.Store(prev) })

	calls := 0
	publishMetricsFunc = func(context.Context, *cloudWatchState, []cwtypes.MetricDatum) { calls++ }
	t.Cleanup(func() { publishMetricsFunc = publishMetrics })

	EmitMetric(quietLogger(), "pipeline", ProductsUploaded, 1, "", nil)
	if calls != 0 || Enabled() {
		t.Fatalf("expected no publish without a client")
	}
}

func TestCollectorKeepsLatestNumericValues(t *testing.T) {
	c := NewCollector()

	log := quietLogger()
	EmitMetric(log, "uploader", ProductsUploaded, 10, "counter", nil)
	EmitMetric(log, "uploader", ProductsUploaded, 25, "counter", nil)
	EmitMetric(log, "pipeline", ChecksumCorrect, false, "gauge", nil)
	EmitMetric(log, "pipeline", "label", "text", "gauge", nil)

	got := c.Values()
	if len(got) != 2 || got[ProductsUploaded] != 25 || got[ChecksumCorrect] != 0 {
		t.Fatalf("unexpected values: %v", got)
	}

	c.Close()
	EmitMetric(log, "uploader", BatchesSubmitted, 3, "counter", nil)
	if _, ok := c.Values()[BatchesSubmitted]; ok {
		t.Fatalf("closed collector must not record metrics")
	}
}
