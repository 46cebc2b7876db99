package statsd

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cdr.dev/slog"
	"github.com/coder/quartz"

	"github.com/coder/connstats"
)

const (
	// DefaultFlushInterval bounds how often subscribers are notified after
	// rows arrive. Appends within one interval coalesce into one snapshot.
	DefaultFlushInterval = 250 * time.Millisecond

	// flushAt forces a flush when this many appends are pending, so a
	// burst does not sit in the buffer for a full interval.
	flushAt = 1024
)

// Feed buffers the raw row streams of live connectors and broadcasts
// complete, ordered snapshots to subscribers. Subscribers always receive
// whole snapshots, never diffs; a slow subscriber observes fewer, newer
// snapshots rather than a backlog.
type Feed struct {
	log           slog.Logger
	clock         quartz.Clock
	flushInterval time.Duration

	ctx        context.Context
	cancel     context.CancelFunc
	flushEarly chan struct{}
	done       chan struct{}

	mu         sync.Mutex
	connectors map[uuid.UUID]*feedConnector
	pending    int
}

type feedConnector struct {
	rows  []connstats.Row
	dirty bool
	subs  map[*Subscription]struct{}
}

// NewFeed creates a feed and starts its flush loop.
func NewFeed(log slog.Logger, clock quartz.Clock, flushInterval time.Duration) *Feed {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Feed{
		log:           log,
		clock:         clock,
		flushInterval: flushInterval,
		ctx:           ctx,
		cancel:        cancel,
		flushEarly:    make(chan struct{}, 1),
		done:          make(chan struct{}),
		connectors:    make(map[uuid.UUID]*feedConnector),
	}
	go f.run()
	return f
}

func (f *Feed) run() {
	defer close(f.done)
	ticker := f.clock.TickerFunc(f.ctx, f.flushInterval, func() error {
		f.flush()
		return nil
	}, "feed_flush")
	for {
		select {
		case <-f.ctx.Done():
			_ = ticker.Wait()
			return
		case <-f.flushEarly:
			f.flush()
		}
	}
}

// Close stops the flush loop and closes all subscriptions.
func (f *Feed) Close() {
	f.cancel()
	<-f.done

	f.mu.Lock()
	var subs []*Subscription
	for _, c := range f.connectors {
		for sub := range c.subs {
			subs = append(subs, sub)
		}
		c.subs = nil
	}
	f.mu.Unlock()

	// Closing outside the lock lets a concurrent Subscription.Close finish
	// its own once-guarded teardown without deadlocking.
	for _, sub := range subs {
		sub.closeOnce.Do(func() {
			close(sub.ch)
		})
	}
}

// Append adds rows to a connector's stream, creating the stream on first
// use. Rows are expected to be time-ordered; a regressing timestamp is
// accepted best-effort and logged rather than rejected, to keep one bad
// clock from breaking the dashboard.
func (f *Feed) Append(id uuid.UUID, rows []connstats.Row) {
	if len(rows) == 0 {
		return
	}
	f.mu.Lock()
	c := f.connector(id)
	if len(c.rows) > 0 && rows[0].Timestamp.Before(c.rows[len(c.rows)-1].Timestamp) {
		f.log.Warn(f.ctx, "appended rows regress in time",
			slog.F("connector_id", id),
			slog.F("last", c.rows[len(c.rows)-1].Timestamp),
			slog.F("next", rows[0].Timestamp),
		)
	}
	c.rows = append(c.rows, rows...)
	c.dirty = true
	f.pending += len(rows)
	forceFlush := f.pending >= flushAt
	f.mu.Unlock()

	if forceFlush {
		select {
		case f.flushEarly <- struct{}{}:
		default:
		}
	}
}

// Snapshot returns a copy of the connector's current row stream.
func (f *Feed) Snapshot(id uuid.UUID) ([]connstats.Row, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.connectors[id]
	if !ok {
		return nil, false
	}
	return append([]connstats.Row(nil), c.rows...), true
}

// Subscribe registers for snapshot broadcasts of a connector, creating the
// stream on first use. The current snapshot is delivered immediately.
func (f *Feed) Subscribe(id uuid.UUID) *Subscription {
	sub := &Subscription{
		feed:      f,
		connector: id,
		ch:        make(chan []connstats.Row, 1),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.connector(id)
	c.subs[sub] = struct{}{}
	sub.ch <- append([]connstats.Row(nil), c.rows...)
	return sub
}

// connector returns the stream state for id, creating it if needed. The
// caller must hold mu.
func (f *Feed) connector(id uuid.UUID) *feedConnector {
	c, ok := f.connectors[id]
	if !ok {
		c = &feedConnector{subs: make(map[*Subscription]struct{})}
		f.connectors[id] = c
	}
	return c
}

// flush broadcasts one snapshot per dirty connector. A subscriber that has
// not consumed its previous snapshot has it replaced with the current one.
func (f *Feed) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = 0
	for _, c := range f.connectors {
		if !c.dirty {
			continue
		}
		c.dirty = false
		snap := append([]connstats.Row(nil), c.rows...)
		for sub := range c.subs {
			select {
			case sub.ch <- snap:
			default:
				select {
				case <-sub.ch:
				default:
				}
				select {
				case sub.ch <- snap:
				default:
				}
			}
		}
	}
}

// Subscription is one subscriber's view of a connector stream.
type Subscription struct {
	feed      *Feed
	connector uuid.UUID

	closeOnce sync.Once
	ch        chan []connstats.Row
}

// Chan yields complete row snapshots. It is closed when the subscription or
// the feed is closed.
func (s *Subscription) Chan() <-chan []connstats.Row {
	return s.ch
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		if c, ok := s.feed.connectors[s.connector]; ok && c.subs != nil {
			delete(c.subs, s)
		}
		close(s.ch)
	})
}
