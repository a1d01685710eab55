package grocery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.kurly.com"

// Product is one grocery search result reshaped for API responses.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	ImageURL string `json:"imageUrl"`
}

// Client queries the Market Kurly search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client; baseURL defaults to the public API host.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// search response nesting: data.listSections[0].data.items
type searchResponse struct {
	Data struct {
		ListSections []struct {
			Data struct {
				Items []searchItem `json:"items"`
			} `json:"data"`
		} `json:"listSections"`
	} `json:"data"`
}

type searchItem struct {
	No              json.Number  `json:"no"`
	Name            string       `json:"name"`
	ListImageURL    string       `json:"listImageUrl"`
	SalesPrice      json.Number  `json:"salesPrice"`
	DiscountedPrice *json.Number `json:"discountedPrice"`
}

// Search returns the first result section's items mapped to Products.
// A missing section or item list at any nesting level yields an empty slice.
func (c *Client) Search(ctx context.Context, keyword string) ([]Product, error) {
	endpoint := fmt.Sprintf(
		"%s/search/v4/sites/market/normal-search?keyword=%s&page=1&sortType=4",
		c.baseURL, url.QueryEscape(keyword),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	// The API rejects non-browser callers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")
	req.Header.Set("Referer", "https://www.kurly.com/")
	req.Header.Set("Origin", "https://www.kurly.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grocery search: status %d", resp.StatusCode)
	}
	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("grocery search: decode: %w", err)
	}
	if len(payload.Data.ListSections) == 0 {
		return []Product{}, nil
	}
	items := payload.Data.ListSections[0].Data.Items
	products := make([]Product, 0, len(items))
	for _, item := range items {
		products = append(products, Product{
			ID:       item.No.String(),
			Name:     item.Name,
			Price:    itemPrice(item),
			ImageURL: item.ListImageURL,
		})
	}
	return products, nil
}

// itemPrice prefers the discounted price, falling back to the list price.
// A zero discount counts as no discount.
func itemPrice(item searchItem) string {
	if item.DiscountedPrice != nil {
		if s := item.DiscountedPrice.String(); s != "" && s != "0" {
			return s
		}
	}
	return item.SalesPrice.String()
}
