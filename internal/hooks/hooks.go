// Package hooks exposes entity collections as fetch-and-watch pairs: a
// snapshot query plus a subscription that re-runs the query whenever the
// underlying table changes.
package hooks

import (
	"context"
	"log"
	"sync"

	"github.com/theirongolddev/fintrack/internal/realtime"
)

// Source delivers table change notifications.
type Source interface {
	Subscribe(table string) (<-chan realtime.Change, func())
}

// Hook is one watched collection.
type Hook[T any] struct {
	Name   string
	Table  string
	Query  func(ctx context.Context) ([]T, error)
	Filter func(T) bool

	source Source
}

// New returns a hook over table. filter may be nil.
func New[T any](src Source, name, table string, query func(context.Context) ([]T, error), filter func(T) bool) *Hook[T] {
	return &Hook[T]{Name: name, Table: table, Query: query, Filter: filter, source: src}
}

// Fetch runs the query and applies the filter. Errors are logged and
// yield an empty collection.
func (h *Hook[T]) Fetch(ctx context.Context) []T {
	rows, err := h.Query(ctx)
	if err != nil {
		log.Printf("hooks: %s: fetch failed: %v", h.Name, err)
		return []T{}
	}
	if h.Filter == nil {
		if rows == nil {
			return []T{}
		}
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if h.Filter(r) {
			out = append(out, r)
		}
	}
	return out
}

// Subscribe calls onChange with a fresh snapshot after every insert,
// update or delete on the hook's table, whichever row changed. Delivery
// stops when ctx ends or the returned func is called. The func waits for
// an in-flight onChange to return, so onChange must not call it.
func (h *Hook[T]) Subscribe(ctx context.Context, onChange func([]T)) func() {
	changes, cancelSub := h.source.Subscribe(h.Table)
	ctx, cancel := context.WithCancel(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancelSub()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				// Collapse a burst of changes into one refetch.
				drain(changes)
				rows := h.Fetch(ctx)
				if ctx.Err() != nil {
					return
				}
				onChange(rows)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancelSub()
			cancel()
			<-done
		})
	}
}

func drain(ch <-chan realtime.Change) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
