package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
)

func pullMarkets() []*models.Market {
	return []*models.Market{
		{ID: "m1", Outcomes: []models.Outcome{
			{ID: "m1-yes", TokenID: "t1y"}, {ID: "m1-no", TokenID: "t1n"},
		}},
		{ID: "m2", Outcomes: []models.Outcome{
			{ID: "m2-yes", TokenID: "t2y"}, {ID: "m2-no", TokenID: "t2n"},
		}},
	}
}

func TestPullFetchBatches(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var queries []priceQuery
		json.NewDecoder(r.Body).Decode(&queries)

		resp := map[string]string{}
		for _, q := range queries {
			switch q.TokenID {
			case "t1y":
				resp[q.TokenID] = "0.48"
			case "t1n":
				resp[q.TokenID] = "0.49"
			case "t2y":
				resp[q.TokenID] = "bogus"
			case "t2n":
				resp[q.TokenID] = "0.40"
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	c := NewPullClient(srv.URL, time.Second, 2, 0, testLogger(t))
	readings, err := c.Fetch(context.Background(), pullMarkets())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if requests.Load() != 2 {
		t.Fatalf("4 tokens at batch size 2 should take 2 requests, took %d", requests.Load())
	}

	r1, ok := readings["m1"]
	if !ok || r1.Prices["m1-yes"] != 0.48 || r1.Prices["m1-no"] != 0.49 {
		t.Fatalf("m1 reading wrong: %+v", r1)
	}
	if r1.Source != models.SourcePull {
		t.Fatalf("source %s, want pull", r1.Source)
	}

	// The unparsable yes price drops that outcome but keeps the market.
	r2, ok := readings["m2"]
	if !ok {
		t.Fatalf("m2 missing")
	}
	if _, has := r2.Prices["m2-yes"]; has {
		t.Fatalf("bogus price kept: %+v", r2.Prices)
	}
	if r2.Prices["m2-no"] != 0.40 {
		t.Fatalf("m2 no price wrong: %+v", r2.Prices)
	}
}

func TestPullFetchTotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewPullClient(srv.URL, time.Second, 50, 0, testLogger(t))
	_, err := c.Fetch(context.Background(), pullMarkets())
	if !errors.Is(err, repository.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
