package shell

import (
	"context"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/queries"
	"github.com/matheus3301/beazap/internal/query"
)

// Scoped is an observer whose key depends on the selected instance (and, for
// SLA alerts, the threshold). The shell moves it to the new key whenever
// either changes; the old entry stays cached.
type Scoped struct {
	shell *Shell
	build func() queries.Def
	obs   *query.Observer
}

func (s *Shell) mount(build func() queries.Def, opts query.Options) *Scoped {
	def := build()
	sc := &Scoped{
		shell: s,
		build: build,
		obs:   s.cache.Query(def.Key, def.Fetch, opts),
	}
	s.mu.Lock()
	s.scoped[sc] = struct{}{}
	s.mu.Unlock()
	return sc
}

func (s *Shell) rekey() {
	s.mu.Lock()
	list := make([]*Scoped, 0, len(s.scoped))
	for sc := range s.scoped {
		list = append(list, sc)
	}
	s.mu.Unlock()

	for _, sc := range list {
		def := sc.build()
		sc.obs.SetKey(def.Key, def.Fetch)
	}
}

func (sc *Scoped) Result() query.Result              { return sc.obs.Result() }
func (sc *Scoped) Key() query.Key                    { return sc.obs.Key() }
func (sc *Scoped) Updates() <-chan struct{}          { return sc.obs.Updates() }
func (sc *Scoped) Refetch(ctx context.Context) error { return sc.obs.Refetch(ctx) }

// Close unmounts the observer.
func (sc *Scoped) Close() {
	s := sc.shell
	s.mu.Lock()
	delete(s.scoped, sc)
	s.mu.Unlock()
	sc.obs.Close()
}

// Conversations mounts a filtered conversation list. The filter's instance
// is replaced by the selection.
func (s *Shell) Conversations(f backend.ConversationFilter) *Scoped {
	return s.mount(func() queries.Def {
		f := f
		f.InstanceID = s.sel.Param()
		return s.catalog.Conversations(f)
	}, query.Options{})
}

// RecentConversations mounts the dashboard's short list.
func (s *Shell) RecentConversations() *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.ConversationsRecent(s.sel.Param())
	}, query.Options{})
}

// SLAAlerts mounts the alert list for the selection and current threshold.
func (s *Shell) SLAAlerts() *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.SLAAlerts(s.sel.Param(), s.threshold.Get())
	}, query.Options{RefetchInterval: queries.SLAAlertsInterval})
}

func (s *Shell) Groups() *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.Groups(s.sel.Param())
	}, query.Options{})
}

func (s *Shell) Calls(direction backend.Direction) *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.Calls(s.sel.Param(), direction)
	}, query.Options{})
}

// AttendantMetrics mounts the per-attendant table, polled like the
// attendants screen.
func (s *Shell) AttendantMetrics() *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.AttendantsMetrics(s.sel.Param())
	}, query.Options{RefetchInterval: queries.MetricsInterval})
}

func (s *Shell) Attendants() *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.AttendantsList(s.sel.Param())
	}, query.Options{})
}

func (s *Shell) OverviewComparison() *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.OverviewComparison(s.sel.Param())
	}, query.Options{})
}

func (s *Shell) Teams() *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.Teams(s.sel.Param())
	}, query.Options{})
}

// TeamMetrics mounts the per-team table, polled like AttendantMetrics.
func (s *Shell) TeamMetrics() *Scoped {
	return s.mount(func() queries.Def {
		return s.catalog.TeamMetrics(s.sel.Param())
	}, query.Options{RefetchInterval: queries.MetricsInterval})
}
