package server

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"cooktube/internal/callbacktoken"
	"cooktube/internal/usertoken"
	"cooktube/pkg/domain"
	"cooktube/pkg/store"
	"cooktube/services/recipe/internal/app"
)

const testCallbackSecret = "test-callback-secret"

type testHarness struct {
	server *httptest.Server
	store  *store.MemoryStore
	key    *rsa.PrivateKey
}

func newHarness(t *testing.T) *testHarness {
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

	aimockStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"Processing started"}`))
	}))
	t.Cleanup(aimockStub.Close)

	verifier, err := usertoken.NewVerifier(usertoken.Config{JWKSURL: jwksServer.URL})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	mem := store.NewMemoryStore()
	appCore, err := app.New(app.Config{Store: mem, AimockURL: aimockStub.URL})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{
		App:            appCore,
		TokenVerifier:  verifier,
		CallbackSecret: testCallbackSecret,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	httpServer := httptest.NewServer(srv.Router())
	t.Cleanup(httpServer.Close)
	return &testHarness{server: httpServer, store: mem, key: key}
}

func (h *testHarness) userToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   userID,
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

func (h *testHarness) do(t *testing.T, method, path, bearer, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	payload := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestIngestCreatesAndLinks(t *testing.T) {
	h := newHarness(t)
	token := h.userToken(t, "user-1")

	resp, payload := h.do(t, http.MethodPost, "/recipe", token, `{"url":"https://youtu.be/abc123video"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201; payload %v", resp.StatusCode, payload)
	}
	if payload["video_id"] != "abc123video" {
		t.Errorf("video_id = %v, want abc123video", payload["video_id"])
	}
	if payload["is_new_recipe"] != true {
		t.Errorf("is_new_recipe = %v, want true", payload["is_new_recipe"])
	}
	if payload["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want user-1", payload["user_id"])
	}

	// Same video again, different user: linked, not recreated.
	resp2, payload2 := h.do(t, http.MethodPost, "/recipe", h.userToken(t, "user-2"), `{"url":"https://www.youtube.com/watch?v=abc123video"}`)
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("second status = %d, want 201", resp2.StatusCode)
	}
	if payload2["is_new_recipe"] != false {
		t.Errorf("second is_new_recipe = %v, want false", payload2["is_new_recipe"])
	}
	if payload2["recipe_id"] != payload["recipe_id"] {
		t.Errorf("recipe_id changed across ingests: %v vs %v", payload2["recipe_id"], payload["recipe_id"])
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	token := h.userToken(t, "user-1")

	resp, _ := h.do(t, http.MethodPost, "/recipe", token, `{"url":"https://vimeo.com/123"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid url status = %d, want 400", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodPost, "/recipe", token, `{"url":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty url status = %d, want 400", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodPost, "/recipe", token, `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad json status = %d, want 400", resp.StatusCode)
	}
}

func TestEndpointsRequireToken(t *testing.T) {
	h := newHarness(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/recipe"},
		{http.MethodGet, "/recipe"},
		{http.MethodGet, "/recipe/1"},
	} {
		resp, payload := h.do(t, tc.method, tc.path, "", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", tc.method, tc.path, resp.StatusCode)
		}
		if payload["code"] != "AUTH_INVALID_TOKEN" {
			t.Errorf("%s %s code = %v, want AUTH_INVALID_TOKEN", tc.method, tc.path, payload["code"])
		}
	}

	resp, _ := h.do(t, http.MethodGet, "/recipe", "not-a-jwt", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", resp.StatusCode)
	}
}

func TestListReturnsOwnRecipes(t *testing.T) {
	h := newHarness(t)
	token := h.userToken(t, "user-1")

	h.do(t, http.MethodPost, "/recipe", token, `{"url":"https://youtu.be/video0000a"}`)
	h.do(t, http.MethodPost, "/recipe", token, `{"url":"https://youtu.be/video0000b"}`)

	resp, payload := h.do(t, http.MethodGet, "/recipe", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if payload["count"] != float64(2) {
		t.Errorf("count = %v, want 2", payload["count"])
	}

	resp, payload = h.do(t, http.MethodGet, "/recipe", h.userToken(t, "user-2"), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("other user status = %d, want 200", resp.StatusCode)
	}
	if payload["count"] != float64(0) {
		t.Errorf("other user count = %v, want 0", payload["count"])
	}
}

func TestDetailGatedOnLink(t *testing.T) {
	h := newHarness(t)
	token := h.userToken(t, "user-1")

	h.do(t, http.MethodPost, "/recipe", token, `{"url":"https://youtu.be/abc123video"}`)

	resp, detail := h.do(t, http.MethodGet, "/recipe/1", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if detail["video_id"] != "abc123video" {
		t.Errorf("video_id = %v, want abc123video", detail["video_id"])
	}

	resp, _ = h.do(t, http.MethodGet, "/recipe/1", h.userToken(t, "user-2"), "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unlinked user status = %d, want 404", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodGet, "/recipe/999", token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodGet, "/recipe/not-a-number", token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("bad id status = %d, want 404", resp.StatusCode)
	}
}

func TestProcessCallbackAuth(t *testing.T) {
	h := newHarness(t)
	userTok := h.userToken(t, "user-1")
	_, created := h.do(t, http.MethodPost, "/recipe", userTok, `{"url":"https://youtu.be/abc123video"}`)
	recipeID := int64(created["recipe_id"].(float64))

	signer, err := callbacktoken.NewSigner(testCallbackSecret, 0)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	callbackTok, err := signer.Sign(recipeID)
	if err != nil {
		t.Fatalf("sign callback token: %v", err)
	}

	body := `{"recipe_id":1,"video_id":"abc123video","title":"Kimchi Stew","name":"Kimchi Stew","channel":"Cooking","item":["pot"],"ingredients":[{"name":"kimchi","amount":"300g"}]}`

	// No token.
	resp, _ := h.do(t, http.MethodPost, "/recipe/process", "", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}
	// A user token is not a callback token.
	resp, _ = h.do(t, http.MethodPost, "/recipe/process", userTok, body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("user token status = %d, want 401", resp.StatusCode)
	}
	// Token bound to a different recipe.
	otherTok, _ := signer.Sign(recipeID + 1)
	resp, _ = h.do(t, http.MethodPost, "/recipe/process", otherTok, body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("mismatched token status = %d, want 401", resp.StatusCode)
	}
	// Wrong secret.
	badSigner, _ := callbacktoken.NewSigner("some-other-secret", 0)
	badTok, _ := badSigner.Sign(recipeID)
	resp, _ = h.do(t, http.MethodPost, "/recipe/process", badTok, body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong secret status = %d, want 401", resp.StatusCode)
	}

	// Valid token updates the recipe.
	resp, payload := h.do(t, http.MethodPost, "/recipe/process", callbackTok, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid token status = %d, payload %v", resp.StatusCode, payload)
	}
	recipe, ok, _ := h.store.GetRecipe(recipeID)
	if !ok || recipe.State != domain.StateEnriched {
		t.Fatalf("recipe not enriched after callback: ok=%v state=%v", ok, recipe.State)
	}
	if recipe.Title == nil || *recipe.Title != "Kimchi Stew" {
		t.Errorf("recipe title = %v, want Kimchi Stew", recipe.Title)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)
	token := h.userToken(t, "user-1")

	resp, payload := h.do(t, http.MethodDelete, "/recipe", token, "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /recipe status = %d, want 405", resp.StatusCode)
	}
	if payload["code"] != "SYSTEM_METHOD_NOT_ALLOWED" {
		t.Errorf("code = %v, want SYSTEM_METHOD_NOT_ALLOWED", payload["code"])
	}
	resp, _ = h.do(t, http.MethodGet, "/recipe/process", "", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /recipe/process status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, payload := h.do(t, http.MethodGet, "/healthz", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if payload["status"] != "ok" {
		t.Errorf("status field = %v, want ok", payload["status"])
	}
}
