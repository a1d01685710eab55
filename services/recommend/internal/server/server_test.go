package server

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"cooktube/internal/usertoken"
	"cooktube/pkg/domain"
	"cooktube/pkg/store"
	"cooktube/services/recommend/internal/app"
)

func strPtr(s string) *string { return &s }

type testHarness struct {
	server *httptest.Server
	key    *rsa.PrivateKey
}

func newHarness(t *testing.T, mem *store.MemoryStore) *testHarness {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "kid-1",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}})
	}))
	t.Cleanup(jwksServer.Close)

	verifier, err := usertoken.NewVerifier(usertoken.Config{JWKSURL: jwksServer.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	appCore, err := app.New(app.Config{Store: mem})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := httptest.NewServer(New(Config{App: appCore, TokenVerifier: verifier}).Router())
	t.Cleanup(srv.Close)
	return &testHarness{server: srv, key: key}
}

func (h *testHarness) userToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	token.Header["kid"] = "kid-1"
	signed, err := token.SignedString(h.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (h *testHarness) get(t *testing.T, path, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	payload := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func seedEnriched(mem *store.MemoryStore, videoID, menu string, ingredients ...string) domain.Recipe {
	recipe := domain.Recipe{
		VideoID: videoID,
		Title:   strPtr(menu),
		Name:    strPtr(menu),
		Channel: strPtr("channel"),
		State:   domain.StateEnriched,
	}
	for _, name := range ingredients {
		recipe.Ingredients = append(recipe.Ingredients, domain.Ingredient{Name: name, Amount: "1"})
	}
	return mem.SeedRecipe(recipe)
}

func TestRecommendResponseShape(t *testing.T) {
	mem := store.NewMemoryStore()
	target := seedEnriched(mem, "target00000", "Kimchi Stew", "kimchi", "tofu")
	seedEnriched(mem, "cand0000001", "Kimchi pancake", "kimchi", "flour")

	h := newHarness(t, mem)
	resp, payload := h.get(t, "/recommend/1", h.userToken(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200; payload %v", resp.StatusCode, payload)
	}
	recommends, ok := payload["recommends"].(map[string]any)
	if !ok {
		t.Fatalf("missing recommends object: %v", payload)
	}
	for _, field := range []string{"by_menu", "by_ingredients"} {
		list, ok := recommends[field].([]any)
		if !ok {
			t.Fatalf("missing %s list: %v", field, recommends)
		}
		for _, entry := range list {
			recipe := entry.(map[string]any)
			if recipe["id"] == float64(target.ID) {
				t.Errorf("%s contains the target recipe", field)
			}
		}
	}
}

func TestRecommendAuthAndNotFound(t *testing.T) {
	mem := store.NewMemoryStore()
	seedEnriched(mem, "target00000", "Kimchi Stew", "kimchi")
	h := newHarness(t, mem)

	resp, payload := h.get(t, "/recommend/1", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}
	if payload["code"] != "AUTH_INVALID_TOKEN" {
		t.Errorf("code = %v, want AUTH_INVALID_TOKEN", payload["code"])
	}

	token := h.userToken(t)
	resp, _ = h.get(t, "/recommend/999", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}
	resp, _ = h.get(t, "/recommend/not-a-number", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("bad id status = %d, want 404", resp.StatusCode)
	}
	resp, _ = h.get(t, "/recommend/", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("empty id status = %d, want 404", resp.StatusCode)
	}
}
