package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cooktube/internal/callbacktoken"
	"cooktube/pkg/domain"
)

type deliverClient interface {
	Deliver(ctx context.Context, recipeID int64, e domain.Enrichment) error
}

// httpProcessClient posts enrichment results to the recipe service's
// callback endpoint, authenticated with a per-delivery callback token.
type httpProcessClient struct {
	baseURL    string
	signer     *callbacktoken.Signer
	httpClient *http.Client
}

func newProcessClient(baseURL string, signer *callbacktoken.Signer) *httpProcessClient {
	return &httpProcessClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signer:     signer,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpProcessClient) Deliver(ctx context.Context, recipeID int64, e domain.Enrichment) error {
	payload, err := json.Marshal(map[string]any{
		"recipe_id":   recipeID,
		"video_id":    e.VideoID,
		"title":       e.Title,
		"name":        e.Name,
		"channel":     e.Channel,
		"item":        e.Items,
		"ingredients": e.Ingredients,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recipe/process", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	token, err := c.signer.Sign(recipeID)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("process callback error: %s", msg)
	}
	return nil
}
