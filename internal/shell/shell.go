// Package shell assembles the client core for one profile: cache, push
// connection, invalidation dispatcher, selection and settings. Screens mount
// their queries through it so that instance selection and the SLA threshold
// scope every key.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/bus"
	"github.com/matheus3301/beazap/internal/config"
	"github.com/matheus3301/beazap/internal/queries"
	"github.com/matheus3301/beazap/internal/query"
	"github.com/matheus3301/beazap/internal/selection"
	"github.com/matheus3301/beazap/internal/settings"
	"github.com/matheus3301/beazap/internal/store"
	"github.com/matheus3301/beazap/internal/stream"
	bsync "github.com/matheus3301/beazap/internal/sync"
	"github.com/matheus3301/beazap/internal/timeline"
)

// Deps are the pieces a shell is built from. Config and DB are required;
// anything else left nil is constructed from Config.
type Deps struct {
	Config    *config.Config
	DB        *store.DB
	Logger    *zap.Logger
	Bus       *bus.Bus
	API       *backend.Client
	Cache     *query.Client
	Conn      *stream.Conn
	Engine    *bsync.Engine
	Selection *selection.Context
	Threshold *settings.Setting[int]

	// WatchSettings starts a file watcher so threshold changes made by
	// another process sharing the database reach this one.
	WatchSettings bool
	// NoJournal keeps pushed events out of the store's event log. Set it
	// when a daemon on the same profile already journals them.
	NoJournal bool
}

// Shell is the running client core.
type Shell struct {
	cfg       *config.Config
	db        *store.DB
	logger    *zap.Logger
	bus       *bus.Bus
	cache     *query.Client
	catalog   *queries.Catalog
	roster    *roster
	conn      *stream.Conn
	engine    *bsync.Engine
	sel       *selection.Context
	threshold *settings.Setting[int]
	loc       *time.Location
	watch     bool

	mu        sync.Mutex
	scoped    map[*Scoped]struct{}
	instances *query.Observer
	watcher   *settings.Watcher
	started   bool
	unsubs    []func()
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New builds a shell. Nothing touches the network until Start.
func New(d Deps) (*Shell, error) {
	if d.Config == nil {
		return nil, errors.New("shell: config is required")
	}
	if d.DB == nil {
		return nil, errors.New("shell: store is required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	cfg := d.Config
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if d.Bus == nil {
		d.Bus = bus.New()
	}
	if d.API == nil {
		d.API = backend.New(cfg.APIURL, d.Logger)
	}
	if d.Cache == nil {
		d.Cache = query.New(query.Config{
			RequestTimeout: cfg.RequestTimeout.Duration,
			StaleTime:      cfg.StaleTime.Duration,
			CacheTime:      cfg.CacheTime.Duration,
		}, d.Bus, d.Logger)
	}
	if d.Conn == nil {
		d.Conn = stream.New(StreamConfig(cfg), d.Bus, d.Logger)
	}
	if d.Engine == nil {
		journal := d.DB
		if d.NoJournal {
			journal = nil
		}
		d.Engine = bsync.NewEngine(d.Cache, d.Conn, journal, d.Logger)
	}
	if d.Selection == nil {
		d.Selection = selection.New(d.Bus, d.Logger)
	}
	if d.Threshold == nil {
		d.Threshold, err = settings.SLAThreshold(d.DB, d.Logger)
		if err != nil {
			return nil, fmt.Errorf("load sla threshold: %w", err)
		}
	}

	return &Shell{
		cfg:       cfg,
		db:        d.DB,
		logger:    d.Logger,
		bus:       d.Bus,
		cache:     d.Cache,
		catalog:   queries.NewCatalog(d.API),
		roster:    newRoster(d.Cache, d.API),
		conn:      d.Conn,
		engine:    d.Engine,
		sel:       d.Selection,
		threshold: d.Threshold,
		loc:       loc,
		watch:     d.WatchSettings,
		scoped:    make(map[*Scoped]struct{}),
	}, nil
}

// StreamConfig maps the config file's stream section onto the connection.
func StreamConfig(cfg *config.Config) stream.Config {
	sc := stream.DefaultConfig(cfg.StreamURL())
	sc.Reconnect = cfg.Stream.Reconnect
	if d := cfg.Stream.MinBackoff.Duration; d > 0 {
		sc.MinBackoff = d
	}
	if d := cfg.Stream.MaxBackoff.Duration; d > 0 {
		sc.MaxBackoff = d
	}
	sc.IdleTimeout = cfg.Stream.IdleTimeout.Duration
	return sc
}

// Start mounts the instance list (auto-selecting the first instance once),
// opens the push connection and starts the dispatcher.
func (s *Shell) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("shell already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	if s.watch {
		w, err := settings.NewWatcher(s.db.Path(), 0, s.logger)
		if err != nil {
			s.cancel()
			return fmt.Errorf("watch settings: %w", err)
		}
		w.Register(s.threshold)
		s.watcher = w
	}

	s.unsubs = append(s.unsubs,
		s.sel.Subscribe(func(selection.Change) { s.rekey() }),
		s.threshold.Subscribe(func(int) { s.rekey() }),
	)

	def := s.catalog.Instances()
	s.instances = s.cache.Query(def.Key, def.Fetch, query.Options{})
	s.wg.Add(1)
	go s.autoSelect(ctx, s.instances)

	s.engine.Start(ctx)
	s.conn.Start(ctx)
	s.started = true
	s.logger.Info("shell started",
		zap.String("api_url", s.cfg.APIURL),
		zap.String("stream_url", s.cfg.StreamURL()))
	return nil
}

// autoSelect picks the first instance the first time the list arrives.
func (s *Shell) autoSelect(ctx context.Context, o *query.Observer) {
	defer s.wg.Done()
	for {
		if list, ok := query.Get[[]backend.Instance](o.Result()); ok {
			ids := make([]int64, len(list))
			for i, inst := range list {
				ids[i] = inst.ID
			}
			s.sel.AutoSelect(ids)
		}
		select {
		case <-ctx.Done():
			return
		case _, ok := <-o.Updates():
			if !ok {
				return
			}
		}
	}
}

// Stop closes the connection, the dispatcher and every mounted query.
func (s *Shell) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	unsubs := s.unsubs
	s.unsubs = nil
	scoped := make([]*Scoped, 0, len(s.scoped))
	for sc := range s.scoped {
		scoped = append(scoped, sc)
	}
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	s.conn.Stop()
	s.engine.Stop()
	if watcher != nil {
		_ = watcher.Close()
	}
	s.instances.Close()
	s.wg.Wait()
	for _, sc := range scoped {
		sc.Close()
	}
	s.logger.Info("shell stopped")
}

func (s *Shell) Config() *config.Config            { return s.cfg }
func (s *Shell) Bus() *bus.Bus                     { return s.bus }
func (s *Shell) Cache() *query.Client              { return s.cache }
func (s *Shell) Catalog() *queries.Catalog         { return s.catalog }
func (s *Shell) Conn() *stream.Conn                { return s.conn }
func (s *Shell) Engine() *bsync.Engine             { return s.engine }
func (s *Shell) Selection() *selection.Context     { return s.sel }
func (s *Shell) Threshold() *settings.Setting[int] { return s.threshold }
func (s *Shell) Location() *time.Location          { return s.loc }

// Instances is the mounted instance list. Nil before Start.
func (s *Shell) Instances() *query.Observer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instances
}

// SetSLAThreshold persists the threshold; every SLA poller re-keys.
func (s *Shell) SetSLAThreshold(minutes int) error {
	return s.threshold.Set(minutes)
}

// OpenConversation mounts a live timeline. The caller closes it.
func (s *Shell) OpenConversation(id int64) *timeline.View {
	return timeline.NewView(timeline.Deps{
		Cache:    s.cache,
		Catalog:  s.catalog,
		Conn:     s.conn,
		Logger:   s.logger,
		Location: s.loc,
	}, id)
}

// GroupMessages mounts a group's messages, polled unconditionally.
func (s *Shell) GroupMessages(groupID int64) *query.Observer {
	def := s.catalog.GroupMessages(groupID)
	return s.cache.Query(def.Key, def.Fetch, query.Options{
		RefetchInterval: queries.GroupMessagesInterval,
		Disabled:        groupID <= 0,
	})
}

// Status is a point-in-time summary for status displays.
type Status struct {
	StreamState  string
	Received     int
	LastEvent    time.Time
	InstanceID   *int64
	SLAThreshold int
	CachedKeys   int
	EventCounts  map[string]int
}

func (s *Shell) Status() Status {
	received, last := s.conn.Stats()
	return Status{
		StreamState:  string(s.conn.State()),
		Received:     received,
		LastEvent:    last,
		InstanceID:   s.sel.Param(),
		SLAThreshold: s.threshold.Get(),
		CachedKeys:   len(s.cache.Keys()),
		EventCounts:  s.engine.Counts(),
	}
}
