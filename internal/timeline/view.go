package timeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/queries"
	"github.com/matheus3301/beazap/internal/query"
	"github.com/matheus3301/beazap/internal/status"
	"github.com/matheus3301/beazap/internal/stream"
)

var (
	// ErrConversationClosed is returned, without any request, for actions
	// that need an open conversation.
	ErrConversationClosed = errors.New("conversation is not open")
	// ErrNotLoaded means the conversation record has not arrived yet.
	ErrNotLoaded = errors.New("conversation not loaded")
	// ErrSendInProgress blocks a second submit while one is pending.
	ErrSendInProgress = errors.New("a message is already being sent")
)

// Send states of the composer.
const (
	SendIdle    status.State = "idle"
	SendSending status.State = "sending"
	SendError   status.State = "error"
)

var sendTransitions = status.Transitions{
	SendIdle:    {SendSending},
	SendSending: {SendIdle, SendError},
	SendError:   {SendSending, SendIdle},
}

// Deps are the shared pieces a view mounts on.
type Deps struct {
	Cache    *query.Client
	Catalog  *queries.Catalog
	Conn     *stream.Conn // optional
	Logger   *zap.Logger
	Location *time.Location
	// OpenPollInterval, when set, replaces the policy's interval for open
	// conversations.
	OpenPollInterval time.Duration
}

// NoteInput is the payload of AddNote.
type NoteInput struct {
	Content string
	Author  string
}

// View is the live timeline of one conversation.
type View struct {
	deps Deps
	id   int64

	conv  *query.Observer
	msgs  *query.Observer
	notes *query.Observer

	send       *query.Mutation[string, struct{}]
	resolve    *query.Mutation[struct{}, struct{}]
	assign     *query.Mutation[*int64, struct{}]
	analyze    *query.Mutation[struct{}, struct{}]
	addNote    *query.Mutation[NoteInput, *backend.Note]
	deleteNote *query.Mutation[int64, struct{}]

	machine *status.Machine

	mu           sync.Mutex
	composer     string
	sendErr      error
	seen         int
	pollInterval time.Duration

	sigMu   sync.Mutex
	updates chan struct{}
	closed  bool

	unsub func()
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewView mounts the conversation, its messages and its notes. Ids <= 0
// mount disabled observers that never fetch.
func NewView(deps Deps, id int64) *View {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	v := &View{
		deps:    deps,
		id:      id,
		machine: status.NewMachine(SendIdle, sendTransitions, nil, ""),
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	v.machine.OnChange(func(status.Change) { v.signal() })

	disabled := id <= 0
	cat := deps.Catalog
	conv := cat.Conversation(id)
	v.conv = deps.Cache.Query(conv.Key, conv.Fetch, query.Options{Disabled: disabled})
	msgs := cat.Messages(id)
	v.msgs = deps.Cache.Query(msgs.Key, msgs.Fetch, query.Options{Disabled: disabled})
	notes := cat.Notes(id)
	v.notes = deps.Cache.Query(notes.Key, notes.Fetch, query.Options{Disabled: disabled})

	v.initMutations()

	if deps.Conn != nil && !disabled {
		v.unsub = deps.Conn.Subscribe(v.onPush)
	}

	v.wg.Add(1)
	go v.run()
	v.applyPolicy()
	return v
}

func (v *View) initMutations() {
	api := v.deps.Catalog.API()
	c := v.deps.Cache
	id := v.id
	inv := func(kind queries.MutationKind) func() []query.Key {
		return func() []query.Key { return queries.Invalidations(kind, id) }
	}
	sendInv, resolveInv, assignInv := inv(queries.SendMessage), inv(queries.ResolveConversation), inv(queries.AssignConversation)
	analyzeInv, addInv, delInv := inv(queries.AnalyzeConversation), inv(queries.AddNote), inv(queries.DeleteNote)

	v.send = query.NewMutation(c, func(ctx context.Context, text string) (struct{}, error) {
		return struct{}{}, api.SendMessage(ctx, id, text)
	}, query.MutationOptions[string, struct{}]{
		Invalidates: func(string) []query.Key { return sendInv() },
	})
	v.resolve = query.NewMutation(c, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, api.Resolve(ctx, id)
	}, query.MutationOptions[struct{}, struct{}]{
		Invalidates: func(struct{}) []query.Key { return resolveInv() },
	})
	v.assign = query.NewMutation(c, func(ctx context.Context, attendantID *int64) (struct{}, error) {
		return struct{}{}, api.Assign(ctx, id, attendantID)
	}, query.MutationOptions[*int64, struct{}]{
		Invalidates: func(*int64) []query.Key { return assignInv() },
	})
	v.analyze = query.NewMutation(c, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, api.Analyze(ctx, id)
	}, query.MutationOptions[struct{}, struct{}]{
		Invalidates: func(struct{}) []query.Key { return analyzeInv() },
	})
	v.addNote = query.NewMutation(c, func(ctx context.Context, in NoteInput) (*backend.Note, error) {
		return api.AddNote(ctx, id, in.Content, in.Author)
	}, query.MutationOptions[NoteInput, *backend.Note]{
		Invalidates: func(NoteInput) []query.Key { return addInv() },
	})
	v.deleteNote = query.NewMutation(c, func(ctx context.Context, noteID int64) (struct{}, error) {
		return struct{}{}, api.DeleteNote(ctx, id, noteID)
	}, query.MutationOptions[int64, struct{}]{
		Invalidates: func(int64) []query.Key { return delInv() },
	})
}

// ID returns the conversation id.
func (v *View) ID() int64 {
	return v.id
}

// Updates signals (coalesced) whenever Snapshot may have changed. It is
// closed by Close.
func (v *View) Updates() <-chan struct{} {
	return v.updates
}

func (v *View) signal() {
	v.sigMu.Lock()
	defer v.sigMu.Unlock()
	if v.closed {
		return
	}
	select {
	case v.updates <- struct{}{}:
	default:
	}
}

func (v *View) run() {
	defer v.wg.Done()
	for {
		select {
		case <-v.done:
			return
		case _, ok := <-v.conv.Updates():
			if !ok {
				return
			}
			v.applyPolicy()
			v.signal()
		case _, ok := <-v.msgs.Updates():
			if !ok {
				return
			}
			v.signal()
		case _, ok := <-v.notes.Updates():
			if !ok {
				return
			}
			v.signal()
		}
	}
}

// Conversation returns the loaded record.
func (v *View) Conversation() (*backend.Conversation, bool) {
	conv, ok := query.Get[*backend.Conversation](v.conv.Result())
	return conv, ok && conv != nil
}

// Policy is the status policy of the loaded conversation. Before the record
// arrives everything is locked.
func (v *View) Policy() backend.Policy {
	conv, ok := v.Conversation()
	if !ok {
		return backend.Policy{}
	}
	return backend.PolicyFor(conv.Status)
}

// applyPolicy re-evaluates the message poll interval from the current status.
func (v *View) applyPolicy() {
	interval := v.Policy().PollInterval
	if interval > 0 && v.deps.OpenPollInterval > 0 {
		interval = v.deps.OpenPollInterval
	}
	v.mu.Lock()
	changed := interval != v.pollInterval
	v.pollInterval = interval
	v.mu.Unlock()
	if changed {
		v.msgs.SetOptions(query.Options{RefetchInterval: interval, Disabled: v.id <= 0})
		v.deps.Logger.Debug("message polling",
			zap.Int64("conversation_id", v.id),
			zap.Duration("interval", interval))
	}
}

// onPush refreshes this conversation when the backend reports message
// activity, under the same open-only gate as polling.
func (v *View) onPush(evt stream.Event) {
	if evt.Type != stream.TypeNewMessage && evt.Type != stream.TypeMessageUpdated {
		return
	}
	if v.Policy().PollInterval == 0 {
		return
	}
	v.deps.Cache.Invalidate(query.NewKey(queries.Messages, v.id))
	v.deps.Cache.Invalidate(query.NewKey(queries.Conversation, v.id))
}

// SetComposer replaces the draft text.
func (v *View) SetComposer(text string) {
	v.mu.Lock()
	v.composer = text
	v.mu.Unlock()
	v.signal()
}

// Composer returns the draft text.
func (v *View) Composer() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.composer
}

// SendState returns the composer state.
func (v *View) SendState() status.State {
	return v.machine.Current()
}

// Submit sends the trimmed composer text. It clears the composer at once
// and issues exactly one send; the message shows up when the invalidated
// list refetches. Closed conversations and an empty draft never reach the
// network. The draft is not restored on failure.
func (v *View) Submit(ctx context.Context) error {
	conv, ok := v.Conversation()
	if !ok {
		return ErrNotLoaded
	}
	if !backend.PolicyFor(conv.Status).CanSend {
		return ErrConversationClosed
	}

	v.mu.Lock()
	text := strings.TrimSpace(v.composer)
	if text == "" {
		v.mu.Unlock()
		return nil
	}
	if err := v.machine.Transition(SendSending); err != nil {
		v.mu.Unlock()
		return ErrSendInProgress
	}
	v.composer = ""
	v.sendErr = nil
	v.mu.Unlock()

	if _, err := v.send.Mutate(ctx, text); err != nil {
		v.mu.Lock()
		v.sendErr = err
		v.mu.Unlock()
		_ = v.machine.Transition(SendError)
		v.deps.Logger.Warn("send failed", zap.Int64("conversation_id", v.id), zap.Error(err))
		return err
	}
	_ = v.machine.Transition(SendIdle)
	return nil
}

// DismissError returns the composer from error to idle.
func (v *View) DismissError() {
	if v.machine.Is(SendError) {
		v.mu.Lock()
		v.sendErr = nil
		v.mu.Unlock()
		_ = v.machine.Transition(SendIdle)
	}
}

// Resolve closes an open conversation.
func (v *View) Resolve(ctx context.Context) error {
	if !v.Policy().CanResolve {
		return ErrConversationClosed
	}
	_, err := v.resolve.Mutate(ctx, struct{}{})
	return err
}

// Assign sets the attendant; nil unassigns.
func (v *View) Assign(ctx context.Context, attendantID *int64) error {
	_, err := v.assign.Mutate(ctx, attendantID)
	return err
}

// Analyze asks the backend for an LLM analysis of the conversation.
func (v *View) Analyze(ctx context.Context) error {
	_, err := v.analyze.Mutate(ctx, struct{}{})
	return err
}

func (v *View) AddNote(ctx context.Context, content, author string) (*backend.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("note is empty")
	}
	return v.addNote.Mutate(ctx, NoteInput{Content: content, Author: author})
}

func (v *View) DeleteNote(ctx context.Context, noteID int64) error {
	_, err := v.deleteNote.Mutate(ctx, noteID)
	return err
}

// MutationErr returns the retained failure of the last mutation of kind.
func (v *View) MutationErr(kind queries.MutationKind) error {
	switch kind {
	case queries.SendMessage:
		return v.send.Err()
	case queries.ResolveConversation:
		return v.resolve.Err()
	case queries.AssignConversation:
		return v.assign.Err()
	case queries.AnalyzeConversation:
		return v.analyze.Err()
	case queries.AddNote:
		return v.addNote.Err()
	case queries.DeleteNote:
		return v.deleteNote.Err()
	}
	return nil
}

// Refresh refetches the conversation, its messages and its notes.
func (v *View) Refresh(ctx context.Context) error {
	if err := v.conv.Refetch(ctx); err != nil {
		return err
	}
	if err := v.msgs.Refetch(ctx); err != nil {
		return err
	}
	return v.notes.Refetch(ctx)
}

// Close unmounts the view. Pending requests still land in the cache.
func (v *View) Close() {
	v.sigMu.Lock()
	if v.closed {
		v.sigMu.Unlock()
		return
	}
	v.closed = true
	close(v.updates)
	v.sigMu.Unlock()

	if v.unsub != nil {
		v.unsub()
	}
	close(v.done)
	v.wg.Wait()
	v.conv.Close()
	v.msgs.Close()
	v.notes.Close()
}
