// Package reqid creates request/correlation IDs and stores them in
// Contexts, for threading through the log package's K=V output.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

type key int

const (
	reqIDKey key = iota
	subReqIDKey
)

// Unknown is returned by FromSubContext when no sub-request ID has
// been set.
const Unknown = ""

// New generates a random request ID.
func New() string {
	return uuid.NewString()
}

// NewContext returns a new Context carrying reqid.
func NewContext(ctx context.Context, reqid string) context.Context {
	return context.WithValue(ctx, reqIDKey, reqid)
}

// FromContext returns the request ID stored in ctx, if any.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey).(string)
	return id
}

// NewSubContext returns a new Context carrying a sub-request ID,
// scoped beneath whatever request ID ctx already carries.
func NewSubContext(ctx context.Context, subreqid string) context.Context {
	return context.WithValue(ctx, subReqIDKey, subreqid)
}

// FromSubContext returns the sub-request ID stored in ctx, if any.
func FromSubContext(ctx context.Context) string {
	id, ok := ctx.Value(subReqIDKey).(string)
	if !ok {
		return Unknown
	}
	return id
}
