package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := Init(nil)
	OrderbooksRegroupedTotal.WithLabelValues("binance").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `orderbooks_regrouped_total{exchange="binance"}`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}
