package api

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/bus"
	"github.com/matheus3301/beazap/internal/query"
	"github.com/matheus3301/beazap/internal/shell"
	"github.com/matheus3301/beazap/internal/timeline"
)

const watchBuffer = 256

// Monitor implements beazap.v1.Monitor on top of a running shell.
type Monitor struct {
	profile   string
	shell     *shell.Shell
	logger    *zap.Logger
	startedAt time.Time
}

var _ MonitorServer = (*Monitor)(nil)

// NewMonitor creates the service for profile.
func NewMonitor(profile string, sh *shell.Shell, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{profile: profile, shell: sh, logger: logger, startedAt: time.Now()}
}

func (m *Monitor) GetStatus(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	st := m.shell.Status()
	var lastEvent int64
	if !st.LastEvent.IsZero() {
		lastEvent = st.LastEvent.UnixMilli()
	}
	return toStruct(map[string]any{
		"profile":               m.profile,
		"api_url":               m.shell.Config().APIURL,
		"stream_url":            m.shell.Config().StreamURL(),
		"stream_state":          st.StreamState,
		"events_received":       st.Received,
		"last_event_unix_ms":    lastEvent,
		"instance_id":           st.InstanceID,
		"sla_threshold_minutes": st.SLAThreshold,
		"cached_queries":        st.CachedKeys,
		"event_counts":          st.EventCounts,
		"uptime_ms":             time.Since(m.startedAt).Milliseconds(),
	})
}

func (m *Monitor) fetch(ctx context.Context, key query.Key, fetch query.FetchFunc) (any, error) {
	v, err := m.shell.Cache().Fetch(ctx, key, fetch)
	if err != nil {
		return nil, toStatus(err, "request failed")
	}
	return v, nil
}

func (m *Monitor) ListInstances(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	def := m.shell.Catalog().Instances()
	v, err := m.fetch(ctx, def.Key, def.Fetch)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{
		"instances":   v,
		"instance_id": m.shell.Selection().Param(),
	})
}

// SelectInstance sets the selection; a null or absent instance_id selects
// all instances.
func (m *Monitor) SelectInstance(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, _, err := optionalID(req, "instance_id")
	if err != nil {
		return nil, err
	}
	sel := m.shell.Selection()
	if id == nil {
		sel.Clear()
	} else {
		sel.Set(*id)
	}
	m.logger.Info("instance selected", zap.Int64p("instance_id", id))
	return toStruct(map[string]any{"instance_id": sel.Param()})
}

func (m *Monitor) GetDashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	d, err := m.shell.LoadDashboard(ctx)
	if err != nil {
		return nil, toStatus(err, "could not load dashboard")
	}
	return toStruct(map[string]any{
		"instance_id":       d.InstanceID,
		"comparison":        d.Comparison,
		"extended":          d.Extended,
		"attendants":        d.Attendants,
		"teams":             d.Teams,
		"sla_alerts":        d.SLA,
		"groups_overview":   d.Groups,
		"recent":            d.Recent,
		"sla_threshold_min": m.shell.Threshold().Get(),
	})
}

func (m *Monitor) ListConversations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := backend.ConversationFilter{
		InstanceID: m.shell.Selection().Param(),
		Status:     backend.Status(stringField(req, "status")),
	}
	if _, ok := req.GetFields()["limit"]; ok {
		n, err := intField(req, "limit")
		if err != nil {
			return nil, err
		}
		f.Limit = int(n)
	}
	attendant, _, err := optionalID(req, "attendant_id")
	if err != nil {
		return nil, err
	}
	f.AttendantID = attendant

	def := m.shell.Catalog().Conversations(f)
	v, err := m.fetch(ctx, def.Key, def.Fetch)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"conversations": v})
}

// openView mounts the conversation named by the request and waits for it.
func (m *Monitor) openView(ctx context.Context, req *structpb.Struct) (*timeline.View, error) {
	id, err := intField(req, "conversation_id")
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, invalid("conversation_id must be positive")
	}
	v := m.shell.OpenConversation(id)
	if err := v.Refresh(ctx); err != nil {
		v.Close()
		return nil, toStatus(err, "could not load conversation")
	}
	return v, nil
}

type timelineMessage struct {
	ID        int64             `json:"id"`
	Direction backend.Direction `json:"direction"`
	Text      string            `json:"text"`
	Time      string            `json:"time"`
	Compact   bool              `json:"compact"`
}

type timelineDay struct {
	Label    string            `json:"label"`
	Messages []timelineMessage `json:"messages"`
}

func (m *Monitor) GetTimeline(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, err := m.openView(ctx, req)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	snap := v.Snapshot()
	loc := m.shell.Location()
	days := make([]timelineDay, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		day := timelineDay{Label: g.Label()}
		for _, e := range g.Entries {
			day.Messages = append(day.Messages, timelineMessage{
				ID:        e.Message.ID,
				Direction: e.Message.Direction,
				Text:      e.Message.Text(),
				Time:      e.Message.Timestamp.In(loc).Format("15:04"),
				Compact:   e.Compact,
			})
		}
		days = append(days, day)
	}
	return toStruct(map[string]any{
		"conversation":  snap.Conversation,
		"status_label":  snap.Policy.Label,
		"days":          days,
		"message_count": snap.MessageCount,
		"locked":        snap.Locked,
		"locked_notice": snap.LockedNotice,
		"notes":         snap.Notes,
	})
}

func (m *Monitor) SendText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text := stringField(req, "text")
	v, err := m.openView(ctx, req)
	if err != nil {
		return nil, err
	}
	defer v.Close()

	v.SetComposer(text)
	if err := v.Submit(ctx); err != nil {
		return nil, toStatus(err, "could not send message")
	}
	return toStruct(map[string]any{"ok": true})
}

func (m *Monitor) Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	v, err := m.openView(ctx, req)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	if err := v.Resolve(ctx); err != nil {
		return nil, toStatus(err, "could not resolve conversation")
	}
	return toStruct(map[string]any{"ok": true})
}

func (m *Monitor) Assign(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	attendant, _, err := optionalID(req, "attendant_id")
	if err != nil {
		return nil, err
	}
	v, err := m.openView(ctx, req)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	if err := v.Assign(ctx, attendant); err != nil {
		return nil, toStatus(err, "could not assign conversation")
	}
	return toStruct(map[string]any{"ok": true})
}

func (m *Monitor) AddNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	content := strings.TrimSpace(stringField(req, "content"))
	if content == "" {
		return nil, invalid("content is required")
	}
	author := stringField(req, "author")
	if author == "" {
		author = m.profile
	}
	v, err := m.openView(ctx, req)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	note, err := v.AddNote(ctx, content, author)
	if err != nil {
		return nil, toStatus(err, "could not add note")
	}
	return toStruct(map[string]any{"note": note})
}

func (m *Monitor) DeleteNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	noteID, err := intField(req, "note_id")
	if err != nil {
		return nil, err
	}
	v, err := m.openView(ctx, req)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	if err := v.DeleteNote(ctx, noteID); err != nil {
		return nil, toStatus(err, "could not delete note")
	}
	return toStruct(map[string]any{"ok": true})
}

func (m *Monitor) SetSLAThreshold(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	minutes, err := intField(req, "minutes")
	if err != nil {
		return nil, err
	}
	if err := m.shell.SetSLAThreshold(int(minutes)); err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	return toStruct(map[string]any{"minutes": m.shell.Threshold().Get()})
}

func (m *Monitor) GetSLAAlerts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	def := m.shell.Catalog().SLAAlerts(m.shell.Selection().Param(), m.shell.Threshold().Get())
	v, err := m.fetch(ctx, def.Key, def.Fetch)
	if err != nil {
		return nil, err
	}
	return toStruct(v)
}

// WatchEvents streams bus events as envelopes. The request may carry a
// "prefixes" list of kind prefixes; it defaults to every event.
func (m *Monitor) WatchEvents(req *structpb.Struct, stream grpc.ServerStream) error {
	prefixes := stringList(req, "prefixes")
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	ch, unsub := m.shell.Bus().SubscribeMany(prefixes, watchBuffer)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			env, err := m.envelope(evt)
			if err != nil {
				m.logger.Debug("skip event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.SendMsg(env); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (m *Monitor) envelope(evt bus.Event) (*structpb.Struct, error) {
	payload, err := toValue(evt.Payload)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"event_id":            structpb.NewStringValue(uuid.New().String()),
		"profile":             structpb.NewStringValue(m.profile),
		"kind":                structpb.NewStringValue(evt.Kind),
		"occurred_at_unix_ms": structpb.NewNumberValue(float64(evt.Timestamp.UnixMilli())),
		"payload":             payload,
	}}, nil
}
