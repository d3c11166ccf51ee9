package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry(), "retroswap")

	m.PriceLookup("cache")
	m.PriceLookup("cache")
	m.Upstream("simple_price", "ok", 20*time.Millisecond)
	m.ContractStep("approve", nil)
	m.ContractStep("approve", errors.New("reverted"))
	m.HTTPRequest("price", 429)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PriceLookups.WithLabelValues("cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("simple_price", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContractSteps.WithLabelValues("approve", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("price", "4xx")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PriceLookup("cache")
	m.ContractStep("swap", nil)
	m.PollSkip("prices")
	m.CacheSize(3)
}
