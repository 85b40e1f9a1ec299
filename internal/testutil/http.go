package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baymark/rollcall/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AdminOperator returns an operator holding the admin role.
func AdminOperator() *auth.Operator {
	return &auth.Operator{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Admin",
		Email: "admin@test.com",
		Roles: []string{"admin"},
	}
}

// PlainOperator returns an operator with no roles.
func PlainOperator() *auth.Operator {
	return &auth.Operator{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Operator",
		Email: "operator@test.com",
	}
}

// NewRequest creates an HTTP request with an operator in context.
func NewRequest(method, target string, op *auth.Operator) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if op != nil {
		req = auth.WithTestOperator(req, op)
	}
	return req
}

// NewJSONRequest creates an HTTP request carrying a JSON body and an
// operator in context.
func NewJSONRequest(t *testing.T, method, target string, body any, op *auth.Operator) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if op != nil {
		req = auth.WithTestOperator(req, op)
	}
	return req
}

// DecodeJSON unmarshals a response body into out, failing the test on
// malformed JSON.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
