package api

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/config"
	"github.com/matheus3301/beazap/internal/shell"
	"github.com/matheus3301/beazap/internal/store"
)

type fakeBackend struct {
	mu       sync.Mutex
	sent     []string
	requests []string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path+"?"+r.URL.RawQuery)
	f.mu.Unlock()

	ts := backend.Time{Time: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	hello := "oi"
	var body any
	switch r.URL.Path {
	case "/api/instances":
		body = []backend.Instance{{ID: 2, Name: "Loja"}}
	case "/api/metrics/conversations":
		body = []backend.Conversation{{ID: 1, ContactPhone: "5511", Status: backend.StatusOpen}}
	case "/api/metrics/conversations/1":
		body = backend.Conversation{ID: 1, ContactPhone: "5511", Status: backend.StatusOpen}
	case "/api/metrics/conversations/2":
		body = backend.Conversation{ID: 2, ContactPhone: "5522", Status: backend.StatusResolved}
	case "/api/metrics/conversations/1/messages", "/api/metrics/conversations/2/messages":
		body = []backend.Message{{ID: 10, Direction: backend.Inbound, MsgType: "text", Content: &hello, Timestamp: ts}}
	case "/api/metrics/conversations/1/notes", "/api/metrics/conversations/2/notes":
		body = []backend.Note{}
	case "/api/metrics/conversations/1/send":
		var req struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.sent = append(f.sent, req.Text)
		f.mu.Unlock()
		body = map[string]bool{"ok": true}
	case "/api/metrics/sla-alerts":
		body = backend.SLAAlerts{ThresholdMinutes: 30}
	case "/api/events":
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Conversation not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeBackend) saw(part string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if strings.Contains(r, part) {
			return true
		}
	}
	return false
}

// startMonitor serves a Monitor over a Unix socket and returns a client.
func startMonitor(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	db, err := store.Open(filepath.Join(t.TempDir(), "beazap.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	cfg.APIURL = srv.URL
	cfg.Timezone = "UTC"
	sh, err := shell.New(shell.Deps{Config: cfg, DB: db})
	require.NoError(t, err)
	require.NoError(t, sh.Start(context.Background()))
	t.Cleanup(sh.Stop)

	// Unix socket paths are limited to ~104 bytes; t.TempDir can exceed that.
	dir, err := os.MkdirTemp("/tmp", "beazap-api-")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "daemon.sock")

	lis, err := net.Listen("unix", sock)
	require.NoError(t, err)
	gs := grpc.NewServer()
	RegisterMonitorServer(gs, NewMonitor("test", sh, nil))
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	c, err := Dial(sock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, fb
}

func callCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestHealth(t *testing.T) {
	c, _ := startMonitor(t)
	st, err := c.Health(callCtx(t))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)
}

func TestGetStatus(t *testing.T) {
	c, _ := startMonitor(t)
	out, err := c.Call(callCtx(t), MethodGetStatus, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", out["profile"])
	assert.Equal(t, float64(30), out["sla_threshold_minutes"])
	assert.NotEmpty(t, out["stream_state"])
}

func TestListInstancesAndSelect(t *testing.T) {
	c, fb := startMonitor(t)
	ctx := callCtx(t)

	out, err := c.Call(ctx, MethodListInstances, nil)
	require.NoError(t, err)
	list := out["instances"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Loja", list[0].(map[string]any)["name"])

	out, err = c.Call(ctx, MethodSelectInstance, map[string]any{"instance_id": 2})
	require.NoError(t, err)
	assert.Equal(t, float64(2), out["instance_id"])

	_, err = c.Call(ctx, MethodListConversations, map[string]any{"status": "open", "limit": 20})
	require.NoError(t, err)
	assert.True(t, fb.saw("/api/metrics/conversations?instance_id=2&limit=20&status=open"))

	out, err = c.Call(ctx, MethodSelectInstance, map[string]any{"instance_id": nil})
	require.NoError(t, err)
	assert.Nil(t, out["instance_id"])
}

func TestGetTimeline(t *testing.T) {
	c, _ := startMonitor(t)
	out, err := c.Call(callCtx(t), MethodGetTimeline, map[string]any{"conversation_id": 1})
	require.NoError(t, err)

	assert.Equal(t, false, out["locked"])
	days := out["days"].([]any)
	require.Len(t, days, 1)
	day := days[0].(map[string]any)
	assert.Equal(t, "01/01/2024", day["label"])
	msg := day["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "oi", msg["text"])
	assert.Equal(t, "10:00", msg["time"])
}

func TestGetTimelineErrors(t *testing.T) {
	c, _ := startMonitor(t)
	ctx := callCtx(t)

	_, err := c.Call(ctx, MethodGetTimeline, nil)
	assert.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))

	_, err = c.Call(ctx, MethodGetTimeline, map[string]any{"conversation_id": 1.5})
	assert.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))

	_, err = c.Call(ctx, MethodGetTimeline, map[string]any{"conversation_id": 1e19})
	assert.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))

	_, err = c.Call(ctx, MethodGetTimeline, map[string]any{"conversation_id": 99})
	assert.Equal(t, codes.NotFound, grpcstatus.Code(err))
	assert.Contains(t, err.Error(), "Conversation not found")
}

func TestIntFieldRange(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
		ok   bool
	}{
		{42, 42, true},
		{-7, -7, true},
		{math.MinInt64, math.MinInt64, true},
		{1 << 62, 1 << 62, true},
		{1 << 63, 0, false},
		{1e19, 0, false},
		{-1e19, 0, false},
		{math.Inf(1), 0, false},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		req := &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewNumberValue(tt.in)}}
		got, err := intField(req, "id")
		if !tt.ok {
			assert.Equal(t, codes.InvalidArgument, grpcstatus.Code(err), "%v", tt.in)
			continue
		}
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSendText(t *testing.T) {
	c, fb := startMonitor(t)
	ctx := callCtx(t)

	_, err := c.Call(ctx, MethodSendText, map[string]any{"conversation_id": 1, "text": "  Hello "})
	require.NoError(t, err)

	_, err = c.Call(ctx, MethodSendText, map[string]any{"conversation_id": 2, "text": "Hello"})
	assert.Equal(t, codes.FailedPrecondition, grpcstatus.Code(err))

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Equal(t, []string{"Hello"}, fb.sent)
}

func TestResolveClosedConversation(t *testing.T) {
	c, _ := startMonitor(t)
	_, err := c.Call(callCtx(t), MethodResolve, map[string]any{"conversation_id": 2})
	assert.Equal(t, codes.FailedPrecondition, grpcstatus.Code(err))
}

func TestAddNoteRequiresContent(t *testing.T) {
	c, _ := startMonitor(t)
	_, err := c.Call(callCtx(t), MethodAddNote, map[string]any{"conversation_id": 1, "content": "  "})
	assert.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))
}

func TestSLAThreshold(t *testing.T) {
	c, fb := startMonitor(t)
	ctx := callCtx(t)

	_, err := c.Call(ctx, MethodSetSLAThreshold, map[string]any{"minutes": 0})
	assert.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))

	out, err := c.Call(ctx, MethodSetSLAThreshold, map[string]any{"minutes": 45})
	require.NoError(t, err)
	assert.Equal(t, float64(45), out["minutes"])

	_, err = c.Call(ctx, MethodGetSLAAlerts, nil)
	require.NoError(t, err)
	assert.True(t, fb.saw("threshold_minutes=45"))
}

func TestWatchEvents(t *testing.T) {
	c, _ := startMonitor(t)
	ctx := callCtx(t)

	ev, err := c.Watch(ctx, "selection.")
	require.NoError(t, err)

	got := make(chan map[string]any, 1)
	go func() {
		env, err := ev.Recv()
		if err == nil {
			got <- env
		}
	}()

	// The subscription is registered once the server handler runs; retry the
	// selection until an event arrives.
	for i := 0; ; i++ {
		_, err := c.Call(ctx, MethodSelectInstance, map[string]any{"instance_id": 100 + i})
		require.NoError(t, err)
		select {
		case env := <-got:
			assert.Equal(t, "selection.changed", env["kind"])
			assert.Equal(t, "test", env["profile"])
			assert.NotEmpty(t, env["event_id"])
			return
		case <-time.After(50 * time.Millisecond):
		}
		require.Less(t, i, 40, "no event received")
	}
}
