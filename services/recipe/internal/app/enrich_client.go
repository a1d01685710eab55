package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type enrichClient interface {
	Notify(videoID string, recipeID int64) error
}

// httpEnrichClient asks the enrichment producer to start processing a video.
type httpEnrichClient struct {
	baseURL    string
	httpClient *http.Client
}

func newEnrichClient(baseURL string) *httpEnrichClient {
	return &httpEnrichClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpEnrichClient) Notify(videoID string, recipeID int64) error {
	payload, err := json.Marshal(map[string]any{
		"video_id":  videoID,
		"recipe_id": recipeID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/aimock", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

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
		return fmt.Errorf("aimock error: %s", msg)
	}
	return nil
}
