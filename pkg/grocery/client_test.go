package grocery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func kurlyPayload(items []map[string]any) map[string]any {
	return map[string]any{
		"success": true,
		"data": map[string]any{
			"topSections": []any{},
			"listSections": []any{
				map[string]any{
					"data": map[string]any{"items": items},
				},
			},
		},
	}
}

func TestSearchMapsProductsAndPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("keyword"); got != "kimchi" {
			t.Errorf("keyword = %q, want kimchi", got)
		}
		_ = json.NewEncoder(w).Encode(kurlyPayload([]map[string]any{
			{"no": 101, "name": "Napa Kimchi", "listImageUrl": "http://img/1", "salesPrice": 12000, "discountedPrice": 9900},
			{"no": 102, "name": "Tofu", "listImageUrl": "http://img/2", "salesPrice": 3000, "discountedPrice": nil},
			{"no": 103, "name": "Soybean Paste", "listImageUrl": "http://img/3", "salesPrice": 5000, "discountedPrice": 0},
		}))
	}))
	defer srv.Close()

	products, err := NewClient(srv.URL).Search(context.Background(), "kimchi")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("got %d products, want 3", len(products))
	}
	if products[0].ID != "101" || products[0].Price != "9900" {
		t.Fatalf("discounted product mapped wrong: %+v", products[0])
	}
	if products[1].Price != "3000" {
		t.Fatalf("null discount should fall back to sales price, got %q", products[1].Price)
	}
	if products[2].Price != "5000" {
		t.Fatalf("zero discount should fall back to sales price, got %q", products[2].Price)
	}
	if products[0].ImageURL != "http://img/1" {
		t.Fatalf("image url mapped wrong: %q", products[0].ImageURL)
	}
}

func TestSearchEmptySections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"listSections": []any{}}})
	}))
	defer srv.Close()

	products, err := NewClient(srv.URL).Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("got %d products, want 0", len(products))
	}
}

func TestSearchUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Search(context.Background(), "kimchi"); err == nil {
		t.Fatalf("expected non-200 upstream to error")
	}
}
