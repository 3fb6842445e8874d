package queries

import (
	"context"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/query"
)

// Def is a key together with the fetch that fills it.
type Def struct {
	Key   query.Key
	Fetch query.FetchFunc
}

// Catalog builds query definitions against one backend.
type Catalog struct {
	api *backend.Client
}

func NewCatalog(api *backend.Client) *Catalog {
	return &Catalog{api: api}
}

// API exposes the backend for mutations.
func (c *Catalog) API() *backend.Client {
	return c.api
}

func (c *Catalog) Instances() Def {
	return Def{
		Key: query.NewKey(Instances),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Instances(ctx)
		},
	}
}

func (c *Catalog) AttendantsList(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(AttendantsList, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Attendants(ctx, instanceID)
		},
	}
}

func (c *Catalog) Teams(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(TeamsList, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Teams(ctx, instanceID)
		},
	}
}

func (c *Catalog) Overview(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(Overview, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Overview(ctx, instanceID)
		},
	}
}

func (c *Catalog) OverviewComparison(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(OverviewComparison, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.OverviewComparison(ctx, instanceID)
		},
	}
}

func (c *Catalog) ExtendedMetrics(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(ExtendedMetrics, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.ExtendedMetrics(ctx, instanceID)
		},
	}
}

func (c *Catalog) AttendantsMetrics(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(AttendantsMetrics, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.AttendantMetrics(ctx, instanceID)
		},
	}
}

func (c *Catalog) TeamMetrics(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(TeamMetrics, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.TeamMetrics(ctx, instanceID)
		},
	}
}

// Conversations is the filtered conversations list. Every filter field is
// part of the key.
func (c *Catalog) Conversations(f backend.ConversationFilter) Def {
	return Def{
		Key: query.NewKey(Conversations, f.InstanceID, statusParam(f.Status), f.AttendantID, f.Limit),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Conversations(ctx, f)
		},
	}
}

// statusParam keeps "all statuses" distinct from any real status in keys.
func statusParam(s backend.Status) any {
	if s == "" {
		return nil
	}
	return string(s)
}

// ConversationsRecent is the dashboard's short list of latest conversations.
func (c *Catalog) ConversationsRecent(instanceID *int64) Def {
	f := backend.ConversationFilter{Limit: RecentConversationsLimit, InstanceID: instanceID}
	return Def{
		Key: query.NewKey(ConversationsRecent, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Conversations(ctx, f)
		},
	}
}

func (c *Catalog) Conversation(id int64) Def {
	return Def{
		Key: query.NewKey(Conversation, id),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Conversation(ctx, id)
		},
	}
}

func (c *Catalog) Messages(conversationID int64) Def {
	return Def{
		Key: query.NewKey(Messages, conversationID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Messages(ctx, conversationID)
		},
	}
}

func (c *Catalog) Notes(conversationID int64) Def {
	return Def{
		Key: query.NewKey(Notes, conversationID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Notes(ctx, conversationID)
		},
	}
}

// SLAAlerts is keyed by instance and threshold so a threshold change is a
// new query rather than a refetch of the old one.
func (c *Catalog) SLAAlerts(instanceID *int64, thresholdMinutes int) Def {
	return Def{
		Key: query.NewKey(SLAAlerts, instanceID, thresholdMinutes),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.SLAAlerts(ctx, instanceID, thresholdMinutes)
		},
	}
}

func (c *Catalog) Groups(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(Groups, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Groups(ctx, instanceID, 0)
		},
	}
}

func (c *Catalog) GroupsOverview(instanceID *int64) Def {
	return Def{
		Key: query.NewKey(GroupsOverview, instanceID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.GroupOverview(ctx, instanceID)
		},
	}
}

func (c *Catalog) GroupMessages(groupID int64) Def {
	return Def{
		Key: query.NewKey(GroupMessages, groupID),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.GroupMessages(ctx, groupID)
		},
	}
}

func (c *Catalog) Calls(instanceID *int64, direction backend.Direction) Def {
	return Def{
		Key: query.NewKey(Calls, instanceID, string(direction)),
		Fetch: func(ctx context.Context) (any, error) {
			return c.api.Calls(ctx, instanceID, direction)
		},
	}
}
