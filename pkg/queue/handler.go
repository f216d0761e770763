package queue

import (
	"context"
	"encoding/json"
)

type (
	// Handler consumes leased messages of a single kind.
	Handler interface {
		Kind() Kind
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	// HandlerFunc is a typed handler callback; the payload is unmarshalled
	// from the message before the callback runs.
	HandlerFunc[T any] func(ctx context.Context, payload T) error
)

// NewHandler wraps a typed callback into a kind-addressed Handler.
func NewHandler[T any](kind Kind, handler HandlerFunc[T]) Handler {
	return &typedHandler[T]{
		kind:    kind,
		handler: handler,
	}
}

type typedHandler[T any] struct {
	kind    Kind
	handler HandlerFunc[T]
}

func (h *typedHandler[T]) Kind() Kind {
	return h.kind
}

func (h *typedHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return err
	}
	return h.handler(ctx, t)
}
