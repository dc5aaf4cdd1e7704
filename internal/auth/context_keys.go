package auth

import (
	"context"
)

/* Context key types for type-safe context values */
type contextKey string

const (
	subjectKey contextKey = "subject"
	claimsKey  contextKey = "claims"
)

/* SetClaims stores validated claims and their subject in context */
func SetClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, subjectKey, claims.Subject)
}

/* GetClaimsFromContext gets the claims from context */
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

/* GetSubjectFromContext gets the authenticated subject from context */
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok
}
