package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/mgardella/storefront-backend/pkg/enums"
)

type ctxKey string

const (
	ctxKeyUserID    ctxKey = "user_id"
	ctxKeyRole      ctxKey = "role"
	ctxKeyRequestID ctxKey = "request_id"
)

// WithUserID stores the authenticated user id on the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext reads the authenticated user id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(uuid.UUID)
	return id, ok
}

// WithRole stores the authenticated role on the context.
func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

// RoleFromContext reads the authenticated role.
func RoleFromContext(ctx context.Context) (enums.UserRole, bool) {
	role, ok := ctx.Value(ctxKeyRole).(enums.UserRole)
	return role, ok
}

// WithRequestID stores the request id on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext reads the request id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyRequestID).(string)
	return id, ok
}
