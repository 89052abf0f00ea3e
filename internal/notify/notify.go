// Package notify fans raw change batches out to typed per-kind subscribers.
//
// Each record kind is either unwatched or watched. The first subscription
// for a kind installs one raw listener on the source; the last cancellation
// removes it. Subscribers of a kind are called in registration order,
// synchronously, on the goroutine that produced the batch.
package notify

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/roach88/recstore/internal/rowstore"
)

// Source emits raw change batches. rowstore.Handle satisfies it.
type Source interface {
	Subscribe(fn func(rowstore.ChangeBatch)) (unsubscribe func())
}

// ChangeSet is one notification cycle for one record kind.
type ChangeSet[T any] struct {
	Inserted []T
	Updated  []T
	Deleted  []T
}

// Empty reports whether the set holds no records.
func (c ChangeSet[T]) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

type subscriber struct {
	id      uint64
	deliver func(rowstore.ChangeBatch)
}

type watcher struct {
	unsubscribe func()
	subs        []subscriber
}

// Notifier owns the watchers of one source.
type Notifier struct {
	source Source
	logger *slog.Logger

	mu       sync.Mutex
	watchers map[string]*watcher
	nextID   uint64
}

// New creates a Notifier over source. A nil logger uses slog.Default().
func New(source Source, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		source:   source,
		logger:   logger,
		watchers: make(map[string]*watcher),
	}
}

// Observe registers handler for changes to kind. Each changed row is decoded
// independently; rows that fail to decode are skipped and never reported.
//
// The subscription ends when Cancel is called or when the returned
// Subscription becomes unreachable.
func Observe[T any](n *Notifier, kind string, decode func(rowstore.Row) (T, error), handler func(ChangeSet[T])) *Subscription {
	deliver := func(batch rowstore.ChangeBatch) {
		set := ChangeSet[T]{
			Inserted: decodeRows(n.logger, batch.Inserted, decode),
			Updated:  decodeRows(n.logger, batch.Updated, decode),
			Deleted:  decodeRows(n.logger, batch.Deleted, decode),
		}
		handler(set)
	}

	id := n.add(kind, deliver)
	st := &subState{notifier: n, kind: kind, id: id}
	sub := &Subscription{state: st}
	runtime.AddCleanup(sub, func(st *subState) { st.cancel() }, st)
	return sub
}

func decodeRows[T any](logger *slog.Logger, rows []rowstore.Row, decode func(rowstore.Row) (T, error)) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := decode(row)
		if err != nil {
			logger.Debug("skipping undecodable changed row", "kind", row.Kind, "row", row.ID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// add registers deliver for kind, installing the raw listener if kind was unwatched.
func (n *Notifier) add(kind string, deliver func(rowstore.ChangeBatch)) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID

	w, ok := n.watchers[kind]
	if !ok {
		w = &watcher{}
		n.watchers[kind] = w
		w.unsubscribe = n.source.Subscribe(func(batch rowstore.ChangeBatch) {
			n.dispatch(kind, batch)
		})
		n.logger.Debug("watching kind", "kind", kind)
	}
	w.subs = append(w.subs, subscriber{id: id, deliver: deliver})
	return id
}

// remove drops one subscriber, tearing down the raw listener with the last one.
func (n *Notifier) remove(kind string, id uint64) {
	n.mu.Lock()
	w, ok := n.watchers[kind]
	if !ok {
		n.mu.Unlock()
		return
	}
	for i, s := range w.subs {
		if s.id == id {
			w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
			break
		}
	}
	var unsubscribe func()
	if len(w.subs) == 0 {
		delete(n.watchers, kind)
		unsubscribe = w.unsubscribe
	}
	n.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		n.logger.Debug("unwatching kind", "kind", kind)
	}
}

func (n *Notifier) dispatch(kind string, batch rowstore.ChangeBatch) {
	filtered := batch.Filter(kind)
	if filtered.Empty() {
		return
	}

	n.mu.Lock()
	w, ok := n.watchers[kind]
	var subs []subscriber
	if ok {
		subs = make([]subscriber, len(w.subs))
		copy(subs, w.subs)
	}
	n.mu.Unlock()

	for _, s := range subs {
		s.deliver(filtered)
	}
}

// Watched reports whether kind has at least one live subscriber.
func (n *Notifier) Watched(kind string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.watchers[kind]
	return ok
}

// Subscribers returns the number of live subscribers for kind.
func (n *Notifier) Subscribers(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if w, ok := n.watchers[kind]; ok {
		return len(w.subs)
	}
	return 0
}

// Close cancels every subscription.
func (n *Notifier) Close() {
	n.mu.Lock()
	watchers := n.watchers
	n.watchers = make(map[string]*watcher)
	n.mu.Unlock()

	for _, w := range watchers {
		w.unsubscribe()
	}
}

// Subscription is a live registration created by Observe.
type Subscription struct {
	state *subState
}

// subState is kept apart from Subscription so the cleanup does not keep the
// Subscription reachable.
type subState struct {
	notifier *Notifier
	kind     string
	id       uint64
	once     sync.Once
}

func (s *subState) cancel() {
	s.once.Do(func() { s.notifier.remove(s.kind, s.id) })
}

// Cancel ends the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.state.cancel()
}

// Kind returns the observed record kind.
func (s *Subscription) Kind() string {
	return s.state.kind
}
