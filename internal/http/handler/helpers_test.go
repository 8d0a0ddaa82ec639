package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/http/response"
	"github.com/sandeepkv93/endorsement-backend/internal/security"
)

const testSigningSecret = "abcdefghijklmnopqrstuvwxyz123456"

func testJWT() *security.JWTManager {
	return security.NewJWTManager("endorsement-test", "endorsement-api", testSigningSecret)
}

func tokenFor(t *testing.T, jwt *security.JWTManager, accountID string) string {
	t.Helper()
	tok, _, err := jwt.SignSessionToken(accountID, time.Hour)
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}
	return tok
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v body=%s", err, rr.Body.String())
	}
	return env
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rr)
	if env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rr.Body.String())
	}
	return env.Error.Code
}
