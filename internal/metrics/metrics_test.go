package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMatch(t *testing.T) {
	before := testutil.ToFloat64(MatchQueries.WithLabelValues("matched"))
	RecordMatch("matched", 3, 2*time.Millisecond)
	after := testutil.ToFloat64(MatchQueries.WithLabelValues("matched"))
	if after != before+1 {
		t.Errorf("matched counter = %v, want %v", after, before+1)
	}
}

func TestRecordStoreOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(StoreOperations.WithLabelValues("set_override", "ok"))
	errBefore := testutil.ToFloat64(StoreOperations.WithLabelValues("set_override", "error"))

	RecordStoreOperation("set_override", nil)
	RecordStoreOperation("set_override", errors.New("disk full"))

	if got := testutil.ToFloat64(StoreOperations.WithLabelValues("set_override", "ok")); got != okBefore+1 {
		t.Errorf("ok counter = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(StoreOperations.WithLabelValues("set_override", "error")); got != errBefore+1 {
		t.Errorf("error counter = %v, want %v", got, errBefore+1)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/dimensions", "200"))
	RecordHTTPRequest("GET", "/api/dimensions", 200, time.Millisecond)
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/api/dimensions", "200")); got != before+1 {
		t.Errorf("http counter = %v, want %v", got, before+1)
	}
}

func TestSetCatalogSize(t *testing.T) {
	SetCatalogSize(12, 40)
	if got := testutil.ToFloat64(CatalogSize.WithLabelValues("dimensions")); got != 12 {
		t.Errorf("dimensions gauge = %v, want 12", got)
	}
	if got := testutil.ToFloat64(CatalogSize.WithLabelValues("activities")); got != 40 {
		t.Errorf("activities gauge = %v, want 40", got)
	}
}
