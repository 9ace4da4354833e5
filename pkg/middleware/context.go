package middleware

import (
	"context"

	"github.com/rs/xid"
)

type requestIDKey struct{}

func ContextWithRequestID(parentCtx context.Context, id string) context.Context {
	return context.WithValue(parentCtx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func nextRequestID() string {
	return xid.New().String()
}
