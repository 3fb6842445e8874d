package timeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/queries"
	"github.com/matheus3301/beazap/internal/query"
)

// fakeBackend serves one conversation and records what the view asks for.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	conv        backend.Conversation
	messages    []backend.Message
	notes       []backend.Note
	sent        []string
	messageGets int
	sendFail    string
	sendGate    chan struct{}
	sendStarted chan struct{}
	nextID      int64
	events      chan string
	hits        map[string]int
}

func newFakeBackend(t *testing.T, id int64, st backend.Status) *fakeBackend {
	t.Helper()
	f := &fakeBackend{
		t:      t,
		conv:   backend.Conversation{ID: id, ContactPhone: "5511999990000", Status: st},
		nextID: 100,
		events: make(chan string, 8),
		hits:   make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBackend) deps() Deps {
	cache := query.New(query.Config{RequestTimeout: 5 * time.Second, CacheTime: time.Minute}, nil, nil)
	f.t.Cleanup(cache.Close)
	return Deps{
		Cache:    cache,
		Catalog:  queries.NewCatalog(backend.New(f.srv.URL, nil)),
		Location: time.UTC,
	}
}

func (f *fakeBackend) addMessage(dir backend.Direction, text string, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, backend.Message{
		ID:        f.nextID,
		Direction: dir,
		MsgType:   "text",
		Content:   &text,
		Timestamp: backend.Time{Time: ts},
	})
	if dir == backend.Outbound {
		f.conv.OutboundCount++
	} else {
		f.conv.InboundCount++
	}
}

func (f *fakeBackend) setStatus(st backend.Status) {
	f.mu.Lock()
	f.conv.Status = st
	f.mu.Unlock()
}

func (f *fakeBackend) stats() (gets int, sent []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messageGets, append([]string(nil), f.sent...)
}

func (f *fakeBackend) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeBackend) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/events" {
		f.serveEvents(w, r)
		return
	}
	f.mu.Lock()
	f.hits[r.URL.Path]++
	conv := f.conv
	f.mu.Unlock()
	switch r.URL.Path {
	case "/api/metrics/conversations":
		f.writeJSON(w, []backend.Conversation{conv})
		return
	case "/api/metrics/overview":
		f.writeJSON(w, backend.Overview{OpenConversations: 1})
		return
	}

	prefix := fmt.Sprintf("/api/metrics/conversations/%d", f.conv.ID)
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case rest == "" && r.Method == http.MethodGet:
		f.mu.Lock()
		conv := f.conv
		f.mu.Unlock()
		f.writeJSON(w, conv)

	case rest == "/messages":
		f.mu.Lock()
		f.messageGets++
		msgs := append([]backend.Message{}, f.messages...)
		f.mu.Unlock()
		f.writeJSON(w, msgs)

	case rest == "/send":
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.sent = append(f.sent, body.Text)
		fail, gate, started := f.sendFail, f.sendGate, f.sendStarted
		f.mu.Unlock()
		if started != nil {
			close(started)
		}
		if gate != nil {
			<-gate
		}
		if fail != "" {
			w.WriteHeader(http.StatusBadGateway)
			f.writeJSON(w, map[string]string{"detail": fail})
			return
		}
		f.addMessage(backend.Outbound, body.Text, time.Now())
		f.writeJSON(w, map[string]bool{"ok": true})

	case rest == "/resolve":
		f.setStatus(backend.StatusResolved)
		f.writeJSON(w, map[string]bool{"ok": true})

	case rest == "/notes" && r.Method == http.MethodGet:
		f.mu.Lock()
		notes := append([]backend.Note{}, f.notes...)
		f.mu.Unlock()
		f.writeJSON(w, notes)

	case rest == "/notes" && r.Method == http.MethodPost:
		var body struct {
			Content    string `json:"content"`
			AuthorName string `json:"author_name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.nextID++
		n := backend.Note{ID: f.nextID, AuthorName: body.AuthorName, Content: body.Content}
		f.notes = append(f.notes, n)
		f.mu.Unlock()
		f.writeJSON(w, n)

	case strings.HasPrefix(rest, "/notes/") && r.Method == http.MethodDelete:
		noteID, _ := strconv.ParseInt(strings.TrimPrefix(rest, "/notes/"), 10, 64)
		f.mu.Lock()
		kept := f.notes[:0]
		for _, n := range f.notes {
			if n.ID != noteID {
				kept = append(kept, n)
			}
		}
		f.notes = kept
		f.mu.Unlock()
		f.writeJSON(w, map[string]bool{"ok": true})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBackend) serveEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	w.(http.Flusher).Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-f.events:
			fmt.Fprintf(w, "data: %s\n\n", data)
			w.(http.Flusher).Flush()
		}
	}
}
