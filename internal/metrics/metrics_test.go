package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init(func() int { return 7 })
	Init(nil)

	if crawlOpsTotal == nil || imagesTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveCrawlOp("qq", "comicbook", nil)
	if val := testutil.ToFloat64(crawlOpsTotal.WithLabelValues("qq", "comicbook", "ok")); val != 1 {
		t.Errorf("Expected crawlOpsTotal to be 1, got %f", val)
	}

	ObserveImages("qq", 3, 1, 2)
	if val := testutil.ToFloat64(imagesTotal.WithLabelValues("qq", "failed")); val != 2 {
		t.Errorf("Expected failed images to be 2, got %f", val)
	}

	if val := testutil.ToFloat64(cacheEntries); val != 7 {
		t.Errorf("Expected cache gauge to read 7, got %f", val)
	}
}
