package shell

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/queries"
)

// Dashboard is the home screen's data, loaded in one round.
type Dashboard struct {
	InstanceID *int64
	Comparison *backend.OverviewComparison
	Extended   *backend.ExtendedMetrics
	Attendants []backend.AttendantMetrics
	Teams      []backend.TeamMetrics
	SLA        *backend.SLAAlerts
	Groups     *backend.GroupOverview
	Recent     []backend.Conversation
}

// LoadDashboard fetches every dashboard block in parallel through the
// cache, so blocks another screen already holds fresh are not refetched.
func (s *Shell) LoadDashboard(ctx context.Context) (*Dashboard, error) {
	inst := s.sel.Param()
	d := &Dashboard{InstanceID: inst}
	g, ctx := errgroup.WithContext(ctx)

	load := func(def queries.Def, assign func(any)) {
		g.Go(func() error {
			v, err := s.cache.Fetch(ctx, def.Key, def.Fetch)
			if err != nil {
				return fmt.Errorf("load %s: %w", def.Key, err)
			}
			assign(v)
			return nil
		})
	}
	load(s.catalog.OverviewComparison(inst), func(v any) { d.Comparison, _ = v.(*backend.OverviewComparison) })
	load(s.catalog.ExtendedMetrics(inst), func(v any) { d.Extended, _ = v.(*backend.ExtendedMetrics) })
	load(s.catalog.AttendantsMetrics(inst), func(v any) { d.Attendants, _ = v.([]backend.AttendantMetrics) })
	load(s.catalog.TeamMetrics(inst), func(v any) { d.Teams, _ = v.([]backend.TeamMetrics) })
	load(s.catalog.SLAAlerts(inst, s.threshold.Get()), func(v any) { d.SLA, _ = v.(*backend.SLAAlerts) })
	load(s.catalog.GroupsOverview(inst), func(v any) { d.Groups, _ = v.(*backend.GroupOverview) })
	load(s.catalog.ConversationsRecent(inst), func(v any) { d.Recent, _ = v.([]backend.Conversation) })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
