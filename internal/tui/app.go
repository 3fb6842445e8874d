// Package tui is the terminal inbox: a conversation list, the open
// conversation's timeline with its composer, and a status bar. It drives a
// shell in-process.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/query"
	"github.com/matheus3301/beazap/internal/selection"
	"github.com/matheus3301/beazap/internal/shell"
	"github.com/matheus3301/beazap/internal/stream"
	"github.com/matheus3301/beazap/internal/timeline"
	"github.com/matheus3301/beazap/internal/tui/keys"
	"github.com/matheus3301/beazap/internal/tui/model"
	"github.com/matheus3301/beazap/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	// ListLimit caps the conversation list.
	ListLimit = 100

	flashShort = 3 * time.Second
	flashLong  = 6 * time.Second

	scopeList   = "list"
	scopeThread = "thread"
)

// App is the main TUI application.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	footer   *tview.Pages
	shell    *shell.Shell
	inbox    *model.Inbox
	registry *keys.Registry
	list     *views.ConversationList
	thread   *views.Thread
	composer *views.Composer
	status   *views.StatusBar
	prompt   *tview.InputField
	help     *tview.TextView
	author   string
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApp creates the TUI over a started shell. Notes are authored as
// profileName.
func NewApp(sh *shell.Shell, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		footer:   tview.NewPages(),
		shell:    sh,
		inbox:    model.NewInbox(sh, ListLimit),
		registry: keys.NewRegistry(),
		list:     views.NewConversationList(),
		thread:   views.NewThread(sh.Location()),
		composer: views.NewComposer(),
		status:   views.NewStatusBar(profileName),
		prompt:   tview.NewInputField().SetLabel(":").SetFieldWidth(0),
		help:     tview.NewTextView().SetDynamicColors(true),
		author:   profileName,
		ctx:      ctx,
		cancel:   cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	a.thread.Reset()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyTab,
		Description: "tab:focus", Visible: true,
		Handler: a.cycleFocus,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'f',
		Description: "f:filter", Visible: true,
		Handler: func() {
			f := a.inbox.CycleFilter()
			a.inbox.Flash.Info("Filter: "+model.FilterLabel(f), flashShort)
			a.render()
		},
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'n',
		Description: "n:instance", Visible: true,
		Handler: a.cycleInstance,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'r',
		Description: "r:refresh", Visible: false,
		Handler: func() { go a.refresh() },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Description: "::command", Visible: true,
		Handler: a.showPrompt,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "?:help", Visible: true,
		Handler: a.showHelp,
	})

	a.registry.AddView(scopeThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Description: "i:compose", Visible: true,
		Handler: func() {
			if !a.composer.Locked() {
				a.app.SetFocus(a.composer)
			}
		},
	})
	a.registry.AddView(scopeThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'R',
		Description: "R:resolve", Visible: true,
		Handler: func() { a.runOnActive("Resolved", (*timeline.View).Resolve) },
	})
	a.registry.AddView(scopeThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'a',
		Description: "a:analyze", Visible: false,
		Handler: func() { a.runOnActive("Analysis requested", (*timeline.View).Analyze) },
	})
}

func (a *App) setupCallbacks() {
	a.list.SetSelectedFunc(func(row, col int) {
		if id := a.list.SelectedID(); id > 0 {
			a.openConversation(id)
		}
	})

	a.composer.SetOnSend(func(text string) {
		v := a.inbox.Active()
		if v == nil {
			return
		}
		v.SetComposer(text)
		a.composer.SetText("")
		go func() {
			if err := v.Submit(a.ctx); err != nil {
				a.inbox.Flash.Error(sendError(err), flashLong)
			}
			a.requestDraw()
		}()
	})

	a.prompt.SetDoneFunc(func(key tcell.Key) {
		text := a.prompt.GetText()
		a.hidePrompt()
		if key == tcell.KeyEnter && strings.TrimSpace(text) != "" {
			a.execute(ParseCommand(text))
		}
	})
}

func (a *App) setupLayout() {
	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	main := tview.NewFlex().
		AddItem(a.list, 0, 2, true).
		AddItem(right, 0, 3, false)

	a.help.SetBorder(true).SetTitle(" Help ")
	a.help.SetText(helpText(a.registry))

	a.pages.AddPage("inbox", main, true, true)
	a.pages.AddPage("help", centered(a.help, 64, 24), true, false)

	a.footer.AddPage("status", a.status, true, true)
	a.footer.AddPage("prompt", a.prompt, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.footer, 1, 0, false)
	a.app.SetRoot(root, true).SetFocus(a.list)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if page, _ := a.pages.GetFrontPage(); page == "help" {
			switch {
			case event.Key() == tcell.KeyEscape, event.Rune() == '?', event.Rune() == 'q':
				a.pages.HidePage("help")
				a.app.SetFocus(a.list)
				return nil
			}
			return event
		}

		focused := a.app.GetFocus()
		if event.Key() == tcell.KeyEscape && focused != tview.Primitive(a.prompt) {
			a.back()
			return nil
		}

		// Text inputs get every other key.
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		if a.registry.HandleEvent(a.scope(), event) {
			return nil
		}
		return event
	})
}

func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func helpText(r *keys.Registry) string {
	var b strings.Builder
	b.WriteString("[::b]Keys[-:-:-]\n")
	b.WriteString("  enter  open conversation\n  esc    back\n  r      refresh\n  a      analyze (thread)\n")
	for _, h := range r.Hints(scopeThread) {
		fmt.Fprintf(&b, "  %s\n", tview.Escape(h))
	}
	b.WriteString("\n[::b]Commands[-:-:-]\n")
	for _, c := range commandHelp {
		fmt.Fprintf(&b, "  :%s\n", tview.Escape(c))
	}
	return b.String()
}

// scope is the registry scope for the focused pane.
func (a *App) scope() string {
	if a.app.GetFocus() == tview.Primitive(a.thread) {
		return scopeThread
	}
	return scopeList
}

func (a *App) cycleFocus() {
	switch a.app.GetFocus() {
	case tview.Primitive(a.list):
		if a.inbox.Active() != nil {
			a.app.SetFocus(a.thread)
		}
	case tview.Primitive(a.thread):
		if !a.composer.Locked() {
			a.app.SetFocus(a.composer)
		} else {
			a.app.SetFocus(a.list)
		}
	default:
		a.app.SetFocus(a.list)
	}
	a.render()
}

// back moves one step out: composer to thread, thread to list.
func (a *App) back() {
	switch a.app.GetFocus() {
	case tview.Primitive(a.composer):
		a.app.SetFocus(a.thread)
	default:
		a.app.SetFocus(a.list)
	}
	a.render()
}

func (a *App) showHelp() {
	a.pages.ShowPage("help")
	a.app.SetFocus(a.help)
}

func (a *App) showPrompt() {
	a.prompt.SetText("")
	a.footer.SwitchToPage("prompt")
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.footer.SwitchToPage("status")
	a.app.SetFocus(a.list)
}

func (a *App) openConversation(id int64) {
	if a.inbox.Open(id) == nil {
		return
	}
	a.app.SetFocus(a.thread)
	a.render()
}

func (a *App) cycleInstance() {
	obs := a.shell.Instances()
	if obs == nil {
		return
	}
	insts, _ := query.Get[[]backend.Instance](obs.Result())
	next := nextInstance(insts, a.shell.Selection().Param())
	if next == nil {
		a.shell.Selection().Clear()
		a.inbox.Flash.Info("All instances", flashShort)
	} else {
		a.shell.Selection().Set(*next)
		a.inbox.Flash.Info(fmt.Sprintf("Instance %d", *next), flashShort)
	}
	a.render()
}

// nextInstance steps through the instance ids, then "all" (nil), then back
// to the first.
func nextInstance(insts []backend.Instance, current *int64) *int64 {
	if len(insts) == 0 {
		return nil
	}
	if current == nil {
		id := insts[0].ID
		return &id
	}
	for i, inst := range insts {
		if inst.ID == *current {
			if i+1 < len(insts) {
				id := insts[i+1].ID
				return &id
			}
			return nil
		}
	}
	id := insts[0].ID
	return &id
}

// runOnActive runs op against the open conversation off the UI goroutine.
func (a *App) runOnActive(done string, op func(*timeline.View, context.Context) error) {
	v := a.inbox.Active()
	if v == nil {
		a.inbox.Flash.Error("No conversation open", flashShort)
		a.render()
		return
	}
	go func() {
		if err := op(v, a.ctx); err != nil {
			a.inbox.Flash.Error(actionError(err), flashLong)
		} else {
			a.inbox.Flash.Info(done, flashShort)
		}
		a.requestDraw()
	}()
}

func (a *App) refresh() {
	if err := a.inbox.List().Refetch(a.ctx); err != nil {
		a.inbox.Flash.Error(backend.ErrorMessage(err, "Could not refresh conversations"), flashLong)
	}
	if v := a.inbox.Active(); v != nil {
		if err := v.Refresh(a.ctx); err != nil {
			a.inbox.Flash.Error(backend.ErrorMessage(err, "Could not refresh the conversation"), flashLong)
		}
	}
	a.requestDraw()
}

// execute runs a prompt command on the UI goroutine; network calls move
// off it.
func (a *App) execute(cmd Command) {
	fail := func(err error) {
		a.inbox.Flash.Error(err.Error(), flashLong)
		a.render()
	}

	switch cmd.Name {
	case "q", "quit":
		a.Stop()
	case "open", "o":
		id, err := cmd.Int()
		if err != nil {
			fail(err)
			return
		}
		a.openConversation(id)
	case "filter":
		want := backend.Status(strings.ToLower(cmd.Args))
		if want == "all" {
			want = ""
		}
		if got := a.inbox.SetFilter(want); got != want {
			fail(fmt.Errorf("unknown filter %q", cmd.Args))
			return
		}
		a.inbox.Flash.Info("Filter: "+model.FilterLabel(want), flashShort)
		a.render()
	case "instance":
		id, err := cmd.OptionalID("all")
		if err != nil {
			fail(err)
			return
		}
		if id == nil {
			a.shell.Selection().Clear()
		} else {
			a.shell.Selection().Set(*id)
		}
		a.render()
	case "sla":
		n, err := cmd.Int()
		if err != nil {
			fail(err)
			return
		}
		if err := a.shell.SetSLAThreshold(int(n)); err != nil {
			fail(err)
			return
		}
		a.inbox.Flash.Info(fmt.Sprintf("SLA threshold set to %d minutes", n), flashShort)
		a.render()
	case "resolve":
		a.runOnActive("Resolved", (*timeline.View).Resolve)
	case "analyze":
		a.runOnActive("Analysis requested", (*timeline.View).Analyze)
	case "assign":
		id, err := cmd.OptionalID("none")
		if err != nil {
			fail(err)
			return
		}
		a.runOnActive("Assignment updated", func(v *timeline.View, ctx context.Context) error {
			return v.Assign(ctx, id)
		})
	case "note":
		text := cmd.Args
		a.runOnActive("Note added", func(v *timeline.View, ctx context.Context) error {
			_, err := v.AddNote(ctx, text, a.author)
			return err
		})
	case "unnote":
		id, err := cmd.Int()
		if err != nil {
			fail(err)
			return
		}
		a.runOnActive("Note deleted", func(v *timeline.View, ctx context.Context) error {
			return v.DeleteNote(ctx, id)
		})
	case "refresh":
		go a.refresh()
	default:
		fail(fmt.Errorf("unknown command %q, press ? for help", cmd.Name))
	}
}

func sendError(err error) string {
	switch {
	case errors.Is(err, timeline.ErrConversationClosed):
		return "This conversation is closed"
	case errors.Is(err, timeline.ErrSendInProgress):
		return "A message is already being sent"
	default:
		return backend.ErrorMessage(err, "Failed to send the message")
	}
}

func actionError(err error) string {
	if errors.Is(err, timeline.ErrConversationClosed) || errors.Is(err, timeline.ErrNotLoaded) {
		return err.Error()
	}
	return backend.ErrorMessage(err, err.Error())
}

// render copies model state into the widgets. UI goroutine only.
func (a *App) render() {
	now := time.Now()
	res, convs := a.inbox.Conversations()
	note := ""
	switch {
	case res.Err != nil:
		note = "(error)"
	case res.Fetching:
		note = "(loading)"
	}
	a.list.Update(convs, a.shell.Location(), now)
	a.list.SetHeading(model.FilterLabel(a.inbox.Filter()), len(convs), note)

	if v := a.inbox.Active(); v != nil {
		s := v.Snapshot()
		a.thread.Update(s)
		a.composer.Apply(s)
		if a.composer.Locked() && a.app.GetFocus() == tview.Primitive(a.composer) {
			a.app.SetFocus(a.thread)
		}
	} else {
		a.composer.Apply(timeline.Snapshot{})
	}

	msg, level := a.inbox.Flash.Get()
	a.status.Update(views.Line{
		Status:     a.shell.Status(),
		Alerts:     a.inbox.Alerts(),
		Hints:      a.registry.Hints(a.scope()),
		Flash:      msg,
		FlashLevel: level,
		Now:        now,
	})
}

func (a *App) requestDraw() {
	if a.ctx.Err() != nil {
		return
	}
	a.app.QueueUpdateDraw(a.render)
}

// loop redraws on model updates, stream and selection changes, threshold
// changes and once a second for the clock and flash expiry.
func (a *App) loop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	events, unsubscribe := a.shell.Bus().SubscribeMany([]string{stream.EventStatusChanged, selection.EventChanged}, 16)
	defer unsubscribe()
	thresholdChanged := make(chan struct{}, 1)
	stopThreshold := a.shell.Threshold().Subscribe(func(int) {
		select {
		case thresholdChanged <- struct{}{}:
		default:
		}
	})
	defer stopThreshold()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.inbox.Updates():
		case <-events:
		case <-thresholdChanged:
		case <-ticker.C:
		}
		a.requestDraw()
	}
}

// Run blocks until the user quits.
func (a *App) Run() error {
	a.render()
	go a.loop()
	err := a.app.Run()
	a.cancel()
	a.inbox.Close()
	return err
}

// Stop ends Run.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
