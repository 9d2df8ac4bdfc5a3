package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func binaryMarketJSON(id string) string {
	return fmt.Sprintf(`{"id":"%s","conditionId":"0xcond%s","title":"Will %s happen?","outcomes":[{"tokenId":"yes%s","label":"Yes"},{"tokenId":"no%s","label":"No"}]}`, id, id, id, id, id)
}

func TestPredictCatalogClientPaginatesUntilShortPage(t *testing.T) {
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")

		var items []string
		if calls == 1 {
			for i := 0; i < predictPageSize; i++ {
				items = append(items, binaryMarketJSON(fmt.Sprintf("page1-%d", i)))
			}
		} else {
			items = append(items, binaryMarketJSON("page2-0"))
		}

		body := fmt.Sprintf(`{"markets": [%s], "nextCursor": "next"}`, strings.Join(items, ","))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	client := NewPredictCatalogClient(srv.URL, zap.NewNop())
	markets, err := client.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != predictPageSize+1 {
		t.Fatalf("got %d markets, want %d", len(markets), predictPageSize+1)
	}
	if calls != 2 {
		t.Fatalf("got %d calls, want 2 (stop once page shorter than page size)", calls)
	}
}

func TestPredictCatalogClientDropsNonBinaryMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"markets": [
			{"id":"m1","conditionId":"0xc1","title":"binary","outcomes":[{"tokenId":"y","label":"Yes"},{"tokenId":"n","label":"No"}]},
			{"id":"m2","conditionId":"0xc2","title":"three-way","outcomes":[{"tokenId":"a","label":"A"},{"tokenId":"b","label":"B"},{"tokenId":"c","label":"C"}]},
			{"id":"m3","conditionId":"0xc3","title":"missing-token","outcomes":[{"tokenId":"","label":"Yes"},{"tokenId":"n","label":"No"}]}
		], "nextCursor": ""}`))
	}))
	defer srv.Close()

	client := NewPredictCatalogClient(srv.URL, zap.NewNop())
	markets, err := client.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("got %d markets, want 1 (only the binary one)", len(markets))
	}
	if markets[0].ID != "m1" {
		t.Fatalf("got market %s, want m1", markets[0].ID)
	}
}
