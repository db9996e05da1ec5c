package handlers

import (
	"context"

	"github.com/serroba/shortlink/internal/analytics"
)

type requestMetaKey struct{}

// ContextWithRequest stores the visitor's request metadata in ctx.
func ContextWithRequest(ctx context.Context, req analytics.RequestContext) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, req)
}

// RequestFromContext returns the metadata stored by ContextWithRequest, or a zero value.
func RequestFromContext(ctx context.Context) analytics.RequestContext {
	if v, ok := ctx.Value(requestMetaKey{}).(analytics.RequestContext); ok {
		return v
	}

	return analytics.RequestContext{}
}
