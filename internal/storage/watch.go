package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"google.golang.org/api/iterator"
)

// snapshotSource is the subset of *firestore.QuerySnapshotIterator a watch needs.
type snapshotSource[S any] interface {
	Next() (S, error)
	Stop()
}

// watch pumps src on its own goroutine. Every snapshot goes to deliver. The
// first failure, whether from src or deliver, is reported once to onError and
// ends the watch. The returned func cancels ctx, stops src and waits for the
// goroutine; it is safe to call more than once.
func watch[S any](ctx context.Context, cancel context.CancelFunc, src snapshotSource[S], deliver func(S) error, onError func(error)) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			snap, err := src.Next()
			if err == nil {
				err = deliver(snap)
			}
			if err == nil {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, iterator.Done) {
				return
			}
			slog.Warn("Snapshot listener ended", "error", err)
			if onError != nil {
				onError(classify(err))
			}
			return
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			src.Stop()
			<-done
		})
	}
}
