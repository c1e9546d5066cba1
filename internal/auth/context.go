// Package auth carries the caller's CKAN credentials through a request.
package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const apiTokenKey contextKey = "ckanAPIToken"

// ContextWithAPIToken returns a new context that carries the caller's CKAN API token.
func ContextWithAPIToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, apiTokenKey, strings.TrimSpace(token))
}

// APITokenFromContext retrieves the caller's token, if any.
func APITokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	token, ok := ctx.Value(apiTokenKey).(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// OnBehalfOfCaller reports whether ctx belongs to a forwarded HTTP request,
// whether or not that request carried a token.
func OnBehalfOfCaller(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Value(apiTokenKey).(string)
	return ok
}

// TokenFromRequest reads a CKAN token from the Authorization header. Both a
// bare token, as CKAN itself expects, and the Bearer form are accepted.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// ForwardToken stores the request's token in its context so that CKAN calls
// made on its behalf see the caller's private entities. Requests without a
// token are still marked as caller requests.
func ForwardToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(ContextWithAPIToken(r.Context(), TokenFromRequest(r)))
		next.ServeHTTP(w, r)
	})
}
