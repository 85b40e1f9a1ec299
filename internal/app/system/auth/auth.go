// internal/app/system/auth/auth.go

// Package auth verifies the operator identity handed to this service by
// the external auth gateway. Login, sessions, and account management
// live elsewhere; all we receive is a signed cookie naming the operator
// and their roles, which we verify and inject into the request context.
package auth

import (
	"context"
	"net/http"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// CookieName is the operator identity cookie set by the auth gateway.
const CookieName = "rollcall-operator"

// Operator is the verified identity attached to a request.
type Operator struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type ctxKey string

const operatorKey ctxKey = "operator"

// CurrentOperator returns the operator from context and a found flag.
func CurrentOperator(r *http.Request) (*Operator, bool) {
	op, ok := r.Context().Value(operatorKey).(*Operator)
	return op, ok
}

// Verifier decodes and verifies operator cookies.
type Verifier struct {
	sc  *securecookie.SecureCookie
	log *zap.Logger
}

// NewVerifier builds a Verifier from the shared signing key. The key
// must match the one the auth gateway signs with.
func NewVerifier(hashKey string, log *zap.Logger) *Verifier {
	sc := securecookie.New([]byte(hashKey), nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Verifier{sc: sc, log: log}
}

// LoadOperator is middleware that injects the verified operator into
// the request context. Requests without a valid cookie pass through
// anonymous; RequireOperator decides what that means per route.
func (v *Verifier) LoadOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err == nil {
			var op Operator
			if err := v.sc.Decode(CookieName, c.Value, &op); err == nil && op.ID != "" {
				r = withOperator(r, &op)
			} else if err != nil {
				v.log.Debug("operator cookie rejected", zap.Error(err))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOperator rejects anonymous requests with a plain 401. This is
// a JSON API; there is no login page to redirect to.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentOperator(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withOperator(r *http.Request, op *Operator) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), operatorKey, op))
}

// WithTestOperator injects an operator directly, bypassing cookie
// verification. Tests only.
func WithTestOperator(r *http.Request, op *Operator) *http.Request {
	return withOperator(r, op)
}
