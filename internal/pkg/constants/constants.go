package constants

// contextKey is an unexported type for context keys in this package.
// Using a custom type prevents collisions with keys from other packages
// that might use the same underlying string value.
type contextKey string

const (
	HeaderAuthorization   = "Authorization"
	HeaderXRequestId      = "X-Request-Id"
	HeaderXInternalAPIKey = "X-Internal-Api-Key"

	BearerPrefix = "Bearer "

	// ContextKeyRequestID is the context key for the request ID.
	ContextKeyRequestID contextKey = "request_id"
	// ContextKeyUserID is the context key for the user resolved by the auth gate.
	ContextKeyUserID contextKey = "user_id"
)
