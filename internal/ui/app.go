package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/drag"
	"github.com/five82/setlist/internal/logtail"
	"github.com/five82/setlist/internal/prefs"
	"github.com/five82/setlist/internal/state"
)

// API is the daemon surface the dashboard writes through.
type API interface {
	Submit(ctx context.Context, key, token string, req api.MutationRequest) (api.Snapshot, error)
	NewSession(ctx context.Context) (api.Session, error)
	ListContexts(ctx context.Context) ([]string, error)
}

// Refresher schedules a snapshot fetch shortly after a control action.
type Refresher interface {
	Trigger()
}

// View represents the current active view.
type View int

const (
	ViewQueue View = iota
	ViewLogs
)

// Options configures the UI.
type Options struct {
	Context        context.Context
	API            API
	Reconciler     *state.Reconciler
	Refresher      Refresher
	Logger         *zap.Logger
	ThemeName      string
	PrefsPath      string
	LogPath        string
	VoiceChannel   string
	RequestTimeout time.Duration
	PollInterval   time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctx       context.Context
	api       API
	rec       *state.Reconciler
	refresher Refresher
	logger    *zap.Logger
	prefsPath string
	logPath   string
	voice     string
	timeout   time.Duration
	interval  time.Duration

	// UI state
	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal
	now         time.Time

	// Data state
	mirror     state.Mirror
	token      string
	selectedID string
	selected   int
	offset     int
	drag       *drag.Handler

	logs logState
}

// New creates the dashboard model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	m := Model{
		ctx:          ctx,
		api:          opts.API,
		rec:          opts.Reconciler,
		refresher:    opts.Refresher,
		logger:       logger,
		prefsPath:    prefsPath,
		logPath:      opts.LogPath,
		voice:        opts.VoiceChannel,
		timeout:      timeout,
		interval:     opts.PollInterval,
		keys:         DefaultKeyMap(),
		theme:        GetTheme(opts.ThemeName),
		drag:         drag.NewHandler(nil),
		now:          time.Now(),
		logs:         newLogState(),
	}
	if m.rec == nil {
		m.rec = state.NewReconciler("", clock.New(), nil)
	}
	m.mirror = m.rec.Mirror()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(UITick),
		m.newSessionCmd(false),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.clampSelection()
		m.resizeLogViewport()
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		cmds := []tea.Cmd{tickCmd(UITick)}
		if m.currentView == ViewLogs {
			cmds = append(cmds, m.readLogsCmd())
		}
		return m, tea.Batch(cmds...)

	case MirrorChangedMsg:
		m.syncMirror()
		return m, nil

	case PrefsChangedMsg:
		if p := prefs.Prefs(msg); p.Theme != "" && p.Theme != m.theme.Name {
			m.theme = GetTheme(p.Theme)
		}
		return m, nil

	case sessionMsg:
		return m.handleSession(msg)

	case submitResultMsg:
		return m.handleSubmitResult(msg)

	case actionResultMsg:
		return m.handleActionResult(msg)

	case contextsMsg:
		if picker, ok := m.modal.(*contextPicker); ok {
			picker.setContexts(msg.keys, msg.err)
		}
		return m, nil

	case logsMsg:
		m.setLogLines(msg.lines, msg.err)
		return m, nil
	}

	if m.modal != nil {
		return m.updateModal(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.modal != nil {
		return m.updateModal(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		if m.currentView == ViewQueue {
			m.currentView = ViewLogs
			return m, m.readLogsCmd()
		}
		m.currentView = ViewQueue
		return m, nil
	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.readLogsCmd()
	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewQueue
		m.drag.Cancel()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.trigger()
		return m, nil
	case key.Matches(msg, m.keys.Renew):
		return m, m.newSessionCmd(true)
	case key.Matches(msg, m.keys.Context):
		picker := newContextPicker(m.mirror.Context)
		m.modal = picker
		return m, tea.Batch(picker.Focus(), m.listContextsCmd())
	}

	if m.currentView == ViewLogs {
		return m.handleLogKey(msg)
	}
	return m.handleQueueKey(msg)
}

// handleQueueKey processes keyboard input for the queue view.
func (m Model) handleQueueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.mirror.Entries)

	switch {
	case key.Matches(msg, m.keys.Add):
		form := newAddForm()
		m.modal = form
		return m, form.Focus()
	case key.Matches(msg, m.keys.Join):
		return m, m.actionCmd("join", api.MutationRequest{Op: api.OpBotJoin, VoiceChannel: m.voice})
	case key.Matches(msg, m.keys.Leave):
		return m, m.actionCmd("leave", api.MutationRequest{Op: api.OpBotLeave})
	case key.Matches(msg, m.keys.PlayPause):
		if m.mirror.Status == api.StatusPaused {
			return m, m.actionCmd("resume", api.MutationRequest{Op: api.OpResume})
		}
		return m, m.actionCmd("pause", api.MutationRequest{Op: api.OpPause})
	case key.Matches(msg, m.keys.Skip):
		return m, m.actionCmd("skip", api.MutationRequest{Op: api.OpSkip})
	case key.Matches(msg, m.keys.Clear):
		return m, m.actionCmd("clear", api.MutationRequest{Op: api.OpClear})
	case key.Matches(msg, m.keys.Shuffle):
		return m, m.actionCmd("shuffle", api.MutationRequest{Op: api.OpShuffle})
	}

	if n == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.selectIndex(m.selected + 1)
	case key.Matches(msg, m.keys.Up):
		m.selectIndex(m.selected - 1)
	case key.Matches(msg, m.keys.Top):
		m.selectIndex(0)
	case key.Matches(msg, m.keys.Bottom):
		m.selectIndex(n - 1)
	case key.Matches(msg, m.keys.MoveUp):
		return m.localMove(m.selected, m.selected-1)
	case key.Matches(msg, m.keys.MoveDown):
		return m.localMove(m.selected, m.selected+1)
	case key.Matches(msg, m.keys.MoveToTop):
		op, err := m.rec.OnLocalMoveToTop(m.selected)
		return m.afterLocal(op, err, 0)
	case key.Matches(msg, m.keys.Remove):
		op, err := m.rec.OnLocalRemove(m.selected)
		return m.afterLocal(op, err, m.selected)
	}
	return m, nil
}

// localMove applies a reorder to the mirror and submits it.
func (m Model) localMove(oldIndex, newIndex int) (tea.Model, tea.Cmd) {
	if newIndex < 0 || newIndex >= len(m.mirror.Entries) {
		return m, nil
	}
	op, err := m.rec.OnLocalDragMove(oldIndex, newIndex)
	return m.afterLocal(op, err, newIndex)
}

func (m Model) afterLocal(op state.PendingOp, err error, selectAt int) (tea.Model, tea.Cmd) {
	if err != nil {
		if !errors.Is(err, state.ErrNoop) {
			m.logger.Debug("local move rejected", zap.Error(err))
		}
		return m, nil
	}
	m.syncMirror()
	if op.Op != api.OpRemove {
		m.selectIndex(selectAt)
	}
	return m, m.submitCmd(op)
}

func (m Model) handleSession(msg sessionMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("session mint failed", zap.Error(msg.err))
		if msg.explicit {
			m.rec.OnActionFailed("renew session", msg.err)
		}
		return m, nil
	}
	m.token = msg.session.Token
	m.logger.Info("session minted", zap.String("session", msg.session.ID), zap.Time("expires", msg.session.ExpiresAt))
	if msg.explicit {
		m.rec.SetNotice("Session renewed")
	}
	return m, nil
}

func (m Model) handleSubmitResult(msg submitResultMsg) (tea.Model, tea.Cmd) {
	m.rec.OnSubmitResult(msg.op, msg.err)
	if msg.err != nil {
		m.logger.Warn("mutation failed",
			zap.String("context", msg.key),
			zap.String("op", msg.op.Op),
			zap.String("entry", msg.op.EntryID),
			zap.Error(msg.err))
		m.trigger()
	} else if msg.snap.Context == msg.key && len(m.rec.Mirror().Pending) == 0 {
		m.rec.OnSnapshotReceived(msg.snap)
	}
	m.syncMirror()
	return m, nil
}

func (m Model) handleActionResult(msg actionResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("action failed", zap.String("context", msg.key), zap.String("action", msg.action), zap.Error(msg.err))
		m.rec.OnActionFailed(msg.action, msg.err)
	} else {
		m.logger.Info("action applied", zap.String("context", msg.key), zap.String("action", msg.action), zap.Uint64("version", msg.snap.Version))
		if msg.snap.Context == msg.key && len(m.rec.Mirror().Pending) == 0 {
			m.rec.OnSnapshotReceived(msg.snap)
		}
	}
	m.trigger()
	m.syncMirror()
	return m, nil
}

func (m Model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd, done := m.modal.Update(msg, m.keys)
	if !done {
		m.modal = next
		return m, cmd
	}
	m.modal = nil

	switch result := next.(type) {
	case *addForm:
		if req, ok := result.request(); ok {
			label := "add"
			if req.Op == api.OpAddBatch {
				label = "add batch"
			}
			return m, m.actionCmd(label, req)
		}
	case *contextPicker:
		if chosen := result.chosen(); chosen != "" && chosen != m.mirror.Context {
			m.rec.SetContext(chosen)
			m.syncMirror()
			m.selected, m.offset, m.selectedID = 0, 0, ""
			m.savePrefs()
			m.trigger()
		}
	}
	return m, cmd
}

// syncMirror pulls the latest mirror and keeps the selection on the same
// entry when it is still queued.
func (m *Model) syncMirror() {
	m.mirror = m.rec.Mirror()
	if m.selectedID != "" {
		for i, e := range m.mirror.Entries {
			if e.ID == m.selectedID {
				m.selected = i
				break
			}
		}
	}
	m.clampSelection()
}

func (m *Model) selectIndex(i int) {
	m.selected = i
	m.clampSelection()
}

func (m *Model) clampSelection() {
	n := len(m.mirror.Entries)
	if n == 0 {
		m.selected, m.offset, m.selectedID = 0, 0, ""
		return
	}
	m.selected = max(0, min(m.selected, n-1))
	m.selectedID = m.mirror.Entries[m.selected].ID

	rows := m.visibleRows()
	if rows <= 0 {
		return
	}
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+rows {
		m.offset = m.selected - rows + 1
	}
	m.offset = max(0, min(m.offset, max(0, n-rows)))
}

// visibleRows is the number of queue rows that fit inside the box.
func (m Model) visibleRows() int {
	return m.height - firstRowY - 1
}

func (m Model) trigger() {
	if m.refresher != nil {
		m.refresher.Trigger()
	}
}

func (m Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, LastContext: m.mirror.Context}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", zap.Error(err))
	}
}

// activeNotice returns the current notice while it is fresh.
func (m Model) activeNotice() string {
	if strings.TrimSpace(m.mirror.Notice) == "" {
		return ""
	}
	if !m.mirror.NoticeAt.IsZero() && m.now.Sub(m.mirror.NoticeAt) > NoticeTTL {
		return ""
	}
	return m.mirror.Notice
}

// renderMain renders the header, command bar and active view.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	if m.currentView == ViewLogs {
		b.WriteString(m.renderLogs())
	} else {
		b.WriteString(m.renderQueue())
	}
	return b.String()
}

// Messages

// MirrorChangedMsg tells the model to re-read the reconciler.
type MirrorChangedMsg struct{}

// PrefsChangedMsg carries prefs reloaded from disk.
type PrefsChangedMsg prefs.Prefs

type tickMsg time.Time

type sessionMsg struct {
	session  api.Session
	err      error
	explicit bool
}

type submitResultMsg struct {
	key  string
	op   state.PendingOp
	snap api.Snapshot
	err  error
}

type actionResultMsg struct {
	key    string
	action string
	snap   api.Snapshot
	err    error
}

type contextsMsg struct {
	keys []string
	err  error
}

type logsMsg struct {
	lines []logtail.Line
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) newSessionCmd(explicit bool) tea.Cmd {
	if m.api == nil {
		return nil
	}
	ctx, client, timeout := m.ctx, m.api, m.timeout
	return func() tea.Msg {
		c, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		sess, err := client.NewSession(c)
		return sessionMsg{session: sess, err: err, explicit: explicit}
	}
}

func (m Model) submitCmd(op state.PendingOp) tea.Cmd {
	if m.api == nil {
		return nil
	}
	ctx, client, timeout := m.ctx, m.api, m.timeout
	key, token := m.mirror.Context, m.token
	return func() tea.Msg {
		c, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		snap, err := client.Submit(c, key, token, op.Request())
		return submitResultMsg{key: key, op: op, snap: snap, err: err}
	}
}

func (m Model) actionCmd(action string, req api.MutationRequest) tea.Cmd {
	if m.api == nil {
		return nil
	}
	if m.mirror.Context == "" {
		m.rec.SetNotice("Pick a channel first (c)")
		return nil
	}
	ctx, client, timeout := m.ctx, m.api, m.timeout
	key, token := m.mirror.Context, m.token
	return func() tea.Msg {
		c, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		snap, err := client.Submit(c, key, token, req)
		return actionResultMsg{key: key, action: action, snap: snap, err: err}
	}
}

func (m Model) listContextsCmd() tea.Cmd {
	if m.api == nil {
		return nil
	}
	ctx, client, timeout := m.ctx, m.api, m.timeout
	return func() tea.Msg {
		c, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		keys, err := client.ListContexts(c)
		return contextsMsg{keys: keys, err: err}
	}
}

func (m Model) readLogsCmd() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogPaneLines)
		return logsMsg{lines: lines, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until it exits. ready is
// called with the program before it starts so background producers can
// Send messages into it.
func Run(opts Options, ready func(*tea.Program)) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(opts.Context))
	if ready != nil {
		ready(p)
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
