// Package ctxkeys defines typed context keys to avoid key collisions
// across packages.
package ctxkeys

import "context"

// Key is a typed context key to prevent collisions.
type Key string

// Auth context keys
const (
	KeyUserID   Key = "user_id"
	KeyAuthType Key = "auth_type"
	KeyAssetID  Key = "asset_id"
)

// Request context keys
const (
	KeyClientIP  Key = "client_ip"
	KeyRequestID Key = "request_id"
)

// Auth type values set by the gate chain.
const (
	AuthTypeSession = "session"
	AuthTypeToken   = "token"
)

// GetUserID extracts user_id from context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(KeyUserID).(string); ok {
		return v
	}
	return ""
}

// GetAuthType extracts auth_type from context.
func GetAuthType(ctx context.Context) string {
	if v, ok := ctx.Value(KeyAuthType).(string); ok {
		return v
	}
	return ""
}

// GetClientIP extracts client_ip from context.
func GetClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(KeyClientIP).(string); ok {
		return v
	}
	return ""
}
