package spreadsheet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"benchscope/core/domain"
)

func newTestServer(t *testing.T, onBatch func()) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/tenant_access_token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"tenant_access_token": "tok", "expire": 7200})
	})
	mux.HandleFunc("/tables/tbl/records/batch_create", func(w http.ResponseWriter, r *http.Request) {
		onBatch()
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func scoredCandidate(url string) domain.ScoredCandidate {
	return domain.ScoredCandidate{RawCandidate: domain.RawCandidate{URL: url, Source: domain.SourceArxiv}}
}

func TestWriteBatch_SleepsBetweenChunksNotAfterTheLast(t *testing.T) {
	var mu sync.Mutex
	var callTimes []time.Time

	srv := newTestServer(t, func() {
		mu.Lock()
		callTimes = append(callTimes, time.Now())
		mu.Unlock()
	})
	defer srv.Close()

	c := NewClient(srv.Client(), Config{AppID: "a", AppSecret: "s", TableID: "tbl", BaseURL: srv.URL})

	rows := make([]domain.ScoredCandidate, batchSize+5)
	for i := range rows {
		rows[i] = scoredCandidate("https://arxiv.org/abs/x")
	}

	start := time.Now()
	if err := c.WriteBatch(context.Background(), rows); err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	elapsed := time.Since(start)

	mu.Lock()
	defer mu.Unlock()
	if len(callTimes) != 2 {
		t.Fatalf("expected 2 batch_create calls for %d rows (batchSize %d), got %d", len(rows), batchSize, len(callTimes))
	}
	if gap := callTimes[1].Sub(callTimes[0]); gap < 500*time.Millisecond {
		t.Errorf("expected >=0.6s pacing between chunked batch_create calls, got %v", gap)
	}
	if elapsed > 2*time.Second {
		t.Errorf("expected no trailing sleep after the last chunk, total elapsed was %v", elapsed)
	}
}

func TestWriteBatch_SingleChunkHasNoSleep(t *testing.T) {
	var calls int
	srv := newTestServer(t, func() { calls++ })
	defer srv.Close()

	c := NewClient(srv.Client(), Config{AppID: "a", AppSecret: "s", TableID: "tbl", BaseURL: srv.URL})
	rows := []domain.ScoredCandidate{scoredCandidate("https://arxiv.org/abs/1")}

	start := time.Now()
	if err := c.WriteBatch(context.Background(), rows); err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("expected a single-chunk write to return immediately, took %v", elapsed)
	}
	if calls != 1 {
		t.Errorf("expected exactly one batch_create call, got %d", calls)
	}
}
