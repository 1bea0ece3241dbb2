package core

import "context"

// requestIDKey carries the X-Request-ID of the submission a context serves.
// The server middleware sets it and the backend client forwards it.
type requestIDKey struct{}

// WithRequestID tags ctx with id. An empty id leaves ctx untouched so an
// ID set further up is not masked.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the ID set by WithRequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
