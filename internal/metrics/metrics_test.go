package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordItemsUpserted(3)
	c.RecordItemsUpserted(2)
	c.RecordNoopSkip()
	c.RecordDigestRace()
	c.RecordNotification()
	c.RecordNotification()

	if got := counterValue(t, reg, "feedcore_items_upserted_total"); got != 5 {
		t.Errorf("items upserted = %v, want 5", got)
	}
	if got := counterValue(t, reg, "feedcore_noop_skips_total"); got != 1 {
		t.Errorf("noop skips = %v, want 1", got)
	}
	if got := counterValue(t, reg, "feedcore_digest_races_total"); got != 1 {
		t.Errorf("digest races = %v, want 1", got)
	}
	if got := counterValue(t, reg, "feedcore_notifications_total"); got != 2 {
		t.Errorf("notifications = %v, want 2", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordNoopSkip()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "feedcore_noop_skips_total 1") {
		t.Errorf("metrics output missing counter, got:\n%s", body)
	}
}
