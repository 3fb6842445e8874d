package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/matheus3301/beazap/internal/api"
	"github.com/matheus3301/beazap/internal/config"
	"github.com/matheus3301/beazap/internal/lock"
	"github.com/matheus3301/beazap/internal/profile"
	"github.com/matheus3301/beazap/internal/shell"
)

// fakeBackend answers the instance list and holds the event stream open.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/events":
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		case "/api/instances":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":1,"name":"Loja","instance_name":"loja","api_url":"","active":true,"created_at":"2024-01-01T00:00:00"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// shortHome points BEAZAP_HOME at /tmp so socket paths stay under the
// 104-byte Unix socket limit.
func shortHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "beazap-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv("BEAZAP_HOME", dir)
	return dir
}

func TestDaemonLifecycle(t *testing.T) {
	shortHome(t)
	backend := fakeBackend(t)
	cfg := config.Default()
	cfg.APIURL = backend.URL

	var sh *shell.Shell
	app := fxtest.New(t,
		Module(Params{ProfileName: "test", Config: cfg, NoConsole: true}),
		fx.Populate(&sh),
	)
	app.RequireStart()

	c, err := api.Dial(profile.SocketPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if st != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health = %v, want SERVING", st)
	}

	resp, err := c.Call(ctx, api.MethodGetStatus, nil)
	if err != nil {
		t.Fatalf("GetStatus() error: %v", err)
	}
	if resp["profile"] != "test" {
		t.Errorf("profile = %v, want test", resp["profile"])
	}
	if resp["api_url"] != backend.URL {
		t.Errorf("api_url = %v, want %s", resp["api_url"], backend.URL)
	}

	// The first instance is selected once the list arrives.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if id, ok := sh.Selection().Get(); ok {
			if id != 1 {
				t.Errorf("selected = %d, want 1", id)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("instance never auto-selected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if holder := lock.Holder(profile.Dir("test")); holder != os.Getpid() {
		t.Errorf("lock holder = %d, want %d", holder, os.Getpid())
	}

	app.RequireStop()

	if _, err := os.Stat(profile.SocketPath("test")); !os.IsNotExist(err) {
		t.Errorf("socket still present after stop: %v", err)
	}
	if holder := lock.Holder(profile.Dir("test")); holder != 0 {
		t.Errorf("lock still held by %d after stop", holder)
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	shortHome(t)
	if err := profile.EnsureDir("busy"); err != nil {
		t.Fatal(err)
	}
	lk, err := lock.Acquire(profile.Dir("busy"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	app := fx.New(
		Module(Params{ProfileName: "busy", Config: config.Default(), NoConsole: true}),
		fx.NopLogger,
	)
	err = app.Err()
	if err == nil {
		t.Fatal("expected lock error")
	}
	if !strings.Contains(err.Error(), "profile lock held by PID") {
		t.Fatalf("err = %v, want lock holder in message", err)
	}
}

func TestStoreAtProfilePath(t *testing.T) {
	shortHome(t)
	if err := profile.EnsureDir("p"); err != nil {
		t.Fatal(err)
	}
	db, err := provideStore(Params{ProfileName: "p"}, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if db.Path() != filepath.Join(profile.Dir("p"), "beazap.db") {
		t.Errorf("db path = %s", db.Path())
	}
}

// TestNewServerUsesSocketOverride guards against NewServer taking a bare
// string, which fx cannot resolve ("missing type: string").
func TestNewServerUsesSocketOverride(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "beazap-fx-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	socketPath := filepath.Join(tmpDir, "d.sock")

	srv, err := NewServer(Params{ProfileName: "fxtest", SocketPath: socketPath}, zap.NewNop(), api.NewMonitor("fxtest", nil, nil))
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	info, statErr := os.Stat(socketPath)
	if statErr != nil {
		t.Fatalf("socket not created at %s: %v", socketPath, statErr)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}
	srv.Stop(context.Background())
}
