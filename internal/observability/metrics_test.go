package observability

import (
	"testing"
	"time"

	"github.com/danmuck/bglink/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	log := testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordFrame("response", 6, 3, "dispatched")
	RecordHandlerError("evt_attclient_attribute_value")
	RecordTransportError("read payload")
	RecordWait("response", "satisfied", 3*time.Millisecond)
	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)

	if got := testutil.ToFloat64(framesTotal.WithLabelValues("response", "6", "3", "dispatched")); got < 1 {
		t.Fatalf("frame counter not recorded: %v", got)
	}
	log.Debug().Msg("observability/metrics: registration idempotent and recording paths executed")
}
