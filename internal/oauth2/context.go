package oauth2

import (
	"context"
	"strings"
)

type ctxKey string

const (
	subjectKey ctxKey = "oauth2_subject"
	scopeKey   ctxKey = "oauth2_scope"
)

// ContextWithSubject stores the verified token subject and scope in the context.
func ContextWithSubject(ctx context.Context, subject, scope string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, strings.TrimSpace(subject))
	return context.WithValue(ctx, scopeKey, strings.TrimSpace(scope))
}

// SubjectFromContext extracts the authenticated subject from context.
func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// ScopeFromContext returns the space-separated scope stored in context.
func ScopeFromContext(ctx context.Context) string {
	v, _ := ctx.Value(scopeKey).(string)
	return v
}

// HasScope reports whether the context scope includes the given scope value.
func HasScope(ctx context.Context, scope string) bool {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return false
	}
	for _, s := range strings.Fields(ScopeFromContext(ctx)) {
		if s == scope {
			return true
		}
	}
	return false
}
