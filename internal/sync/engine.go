// Package sync turns push events into cache invalidations, so polling and
// push converge on the same refetch path.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/beazap/internal/queries"
	"github.com/matheus3301/beazap/internal/query"
	"github.com/matheus3301/beazap/internal/store"
	"github.com/matheus3301/beazap/internal/stream"
)

// eventInvalidations is the complete event → query family table. Types not
// listed (heartbeat, unknown) invalidate nothing.
var eventInvalidations = map[string][]string{
	stream.TypeNewMessage: {
		queries.OverviewComparison,
		queries.Conversations,
		queries.ConversationsRecent,
		queries.SLAAlerts,
		queries.ExtendedMetrics,
		queries.AttendantsMetrics,
	},
	stream.TypeMessageUpdated: {
		queries.OverviewComparison,
		queries.Conversations,
		queries.ConversationsRecent,
		queries.SLAAlerts,
		queries.ExtendedMetrics,
		queries.AttendantsMetrics,
	},
	stream.TypeGroupsUpdated: {
		queries.Groups,
		queries.GroupsOverview,
	},
	stream.TypeNewCall: {
		queries.Calls,
	},
}

// Families returns the query families invalidated by an event type.
func Families(eventType string) []string {
	return eventInvalidations[eventType]
}

const (
	journalBuffer = 256
	journalKeep   = 1000
	pruneInterval = 10 * time.Minute
)

// Engine subscribes to the push connection and applies the table to the cache.
// When a store is given every received event is journaled, best effort.
type Engine struct {
	cache  *query.Client
	conn   *stream.Conn
	db     *store.DB
	logger *zap.Logger

	journal chan stream.Event
	unsub   func()
	cancel  context.CancelFunc
	done    chan struct{}

	mu     gosync.Mutex
	counts map[string]int
}

// NewEngine creates a new dispatcher. db may be nil.
func NewEngine(cache *query.Client, conn *stream.Conn, db *store.DB, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cache:   cache,
		conn:    conn,
		db:      db,
		logger:  logger,
		journal: make(chan stream.Event, journalBuffer),
		counts:  make(map[string]int),
	}
}

// Start subscribes to the connection and runs the journal writer.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	e.unsub = e.conn.Subscribe(e.HandleEvent)

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case evt := <-e.journal:
				e.record(evt)
			case <-ticker.C:
				e.prune()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop unsubscribes and stops the journal writer.
func (e *Engine) Stop() {
	if e.unsub != nil {
		e.unsub()
	}
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

// HandleEvent applies the invalidations declared for evt.Type.
func (e *Engine) HandleEvent(evt stream.Event) {
	if evt.Type == stream.TypeHeartbeat {
		return
	}

	e.mu.Lock()
	e.counts[evt.Type]++
	e.mu.Unlock()

	families := eventInvalidations[evt.Type]
	for _, f := range families {
		e.cache.Invalidate(query.Key{f})
	}
	if len(families) == 0 {
		e.logger.Debug("ignoring event", zap.String("type", evt.Type))
	}

	if e.db == nil {
		return
	}
	select {
	case e.journal <- evt:
	default:
		e.logger.Warn("event journal full, dropping", zap.String("type", evt.Type))
	}
}

// Counts returns how many events of each type were handled.
func (e *Engine) Counts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.counts))
	for k, v := range e.counts {
		out[k] = v
	}
	return out
}

func (e *Engine) record(evt stream.Event) {
	if err := e.db.AppendEvent(evt.Type, evt.Instance, string(evt.Raw)); err != nil {
		e.logger.Error("failed to journal event", zap.Error(err), zap.String("type", evt.Type))
	}
}

func (e *Engine) prune() {
	if e.db == nil {
		return
	}
	n, err := e.db.PruneEvents(journalKeep)
	if err != nil {
		e.logger.Error("failed to prune event journal", zap.Error(err))
		return
	}
	if n > 0 {
		e.logger.Debug("pruned event journal", zap.Int64("deleted", n))
	}
}
