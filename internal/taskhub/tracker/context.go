package tracker

import (
	"context"

	"github.com/go-faster/errors"
)

var ErrOutsideScope = errors.New("tracker accessed outside of an authenticated request")

type ctxKey struct{}

func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

func FromContext(ctx context.Context) (*Tracker, bool) {
	t, ok := ctx.Value(ctxKey{}).(*Tracker)
	return t, ok && t != nil
}

// MustFromContext panics with ErrOutsideScope when no tracker is bound to ctx.
func MustFromContext(ctx context.Context) *Tracker {
	t, ok := FromContext(ctx)
	if !ok {
		panic(ErrOutsideScope)
	}
	return t
}
