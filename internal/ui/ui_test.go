package ui

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/client"
	"github.com/five82/setlist/internal/state"
)

type fakeAPI struct {
	mu       sync.Mutex
	requests []api.MutationRequest
	err      error
	reply    api.Snapshot
	contexts []string
}

func (f *fakeAPI) Submit(_ context.Context, _ string, _ string, req api.MutationRequest) (api.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeAPI) NewSession(context.Context) (api.Session, error) {
	return api.Session{ID: "s1", Token: "tok"}, nil
}

func (f *fakeAPI) ListContexts(context.Context) ([]string, error) {
	return f.contexts, nil
}

func (f *fakeAPI) last(t *testing.T) api.MutationRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no request submitted")
	}
	return f.requests[len(f.requests)-1]
}

type countingRefresher struct{ n int }

func (r *countingRefresher) Trigger() { r.n++ }

func entries(ids ...string) []api.Entry {
	out := make([]api.Entry, len(ids))
	for i, id := range ids {
		out[i] = api.Entry{ID: id, Title: "Track " + id, SourceRef: "ref:" + id, Position: i}
	}
	return out
}

func newTestModel(t *testing.T, ids ...string) (Model, *fakeAPI, *countingRefresher, *state.Reconciler) {
	t.Helper()
	rec := state.NewReconciler("g_c", clock.New(), nil)
	rec.OnSnapshotReceived(api.Snapshot{
		Context:          "g_c",
		ConnectionStatus: api.StatusPlaying,
		Entries:          entries(ids...),
		Version:          1,
	})
	fake := &fakeAPI{}
	ref := &countingRefresher{}
	m := New(Options{
		API:        fake,
		Reconciler: rec,
		Refresher:  ref,
		PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
	})
	m = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return m, fake, ref, rec
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func stepCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return step(t, m, cmd())
}

func TestMouseDragSubmitsReorder(t *testing.T) {
	m, fake, _, rec := newTestModel(t, "A", "B", "C")

	m = step(t, m, tea.MouseMsg{X: 5, Y: firstRowY, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = step(t, m, tea.MouseMsg{X: 5, Y: firstRowY + 2, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})

	if ids, _ := m.displayEntries(); !reflect.DeepEqual(idsOf(ids), []string{"B", "C", "A"}) {
		t.Fatalf("drag preview = %v, want [B C A]", idsOf(ids))
	}

	m, cmd := stepCmd(t, m, tea.MouseMsg{X: 5, Y: firstRowY + 2, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if got := rec.Mirror().IDs(); !reflect.DeepEqual(got, []string{"B", "C", "A"}) {
		t.Fatalf("mirror after drop = %v, want [B C A]", got)
	}
	if len(rec.Mirror().Pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(rec.Mirror().Pending))
	}

	fake.reply = api.Snapshot{Context: "g_c", ConnectionStatus: api.StatusPlaying, Entries: entries("B", "C", "A"), Version: 2}
	m = run(t, m, cmd)

	req := fake.last(t)
	if req.Op != api.OpReorder || *req.OldIndex != 0 || *req.NewIndex != 2 {
		t.Fatalf("request = %+v, want reorder 0->2", req)
	}
	mirror := rec.Mirror()
	if len(mirror.Pending) != 0 || mirror.Version != 2 {
		t.Fatalf("after result pending=%d version=%d, want 0/2", len(mirror.Pending), mirror.Version)
	}
	if m.mirror.Version != 2 {
		t.Fatalf("model mirror version = %d, want 2", m.mirror.Version)
	}
}

func TestMouseDragUpward(t *testing.T) {
	m, fake, _, rec := newTestModel(t, "A", "B", "C", "D")

	m = step(t, m, tea.MouseMsg{Y: firstRowY + 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, cmd := stepCmd(t, m, tea.MouseMsg{Y: firstRowY + 1, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	_ = run(t, m, cmd)

	if got := rec.Mirror().IDs(); !reflect.DeepEqual(got, []string{"A", "D", "B", "C"}) {
		t.Fatalf("mirror = %v, want [A D B C]", got)
	}
	if req := fake.last(t); *req.OldIndex != 3 || *req.NewIndex != 1 {
		t.Fatalf("request = %d->%d, want 3->1", *req.OldIndex, *req.NewIndex)
	}
}

func TestMouseDropInPlaceEmitsNothing(t *testing.T) {
	m, fake, _, rec := newTestModel(t, "A", "B", "C")

	m = step(t, m, tea.MouseMsg{Y: firstRowY + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = step(t, m, tea.MouseMsg{Y: firstRowY + 2, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	_, cmd := stepCmd(t, m, tea.MouseMsg{Y: firstRowY + 1, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	if cmd != nil {
		t.Fatal("drop at origin returned a command")
	}
	if len(fake.requests) != 0 || len(rec.Mirror().Pending) != 0 {
		t.Fatalf("requests=%d pending=%d, want none", len(fake.requests), len(rec.Mirror().Pending))
	}
}

func TestKeyboardEdits(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		wantIDs []string
		wantOp  string
	}{
		{"move down", []string{"J"}, []string{"B", "A", "C"}, api.OpReorder},
		{"move up", []string{"G", "K"}, []string{"A", "C", "B"}, api.OpReorder},
		{"move to top", []string{"G", "t"}, []string{"C", "A", "B"}, api.OpMoveToTop},
		{"remove", []string{"j", "d"}, []string{"A", "C"}, api.OpRemove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, fake, _, rec := newTestModel(t, "A", "B", "C")
			var cmd tea.Cmd
			for _, k := range tt.keys {
				m, cmd = stepCmd(t, m, keyMsg(k))
			}
			if got := rec.Mirror().IDs(); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Fatalf("mirror = %v, want %v", got, tt.wantIDs)
			}
			_ = run(t, m, cmd)
			if got := fake.last(t).Op; got != tt.wantOp {
				t.Fatalf("op = %q, want %q", got, tt.wantOp)
			}
		})
	}
}

func TestMoveUpAtTopIsNoop(t *testing.T) {
	m, fake, _, _ := newTestModel(t, "A", "B")
	_, cmd := stepCmd(t, m, keyMsg("K"))
	if cmd != nil || len(fake.requests) != 0 {
		t.Fatal("moving the first entry up submitted a request")
	}
}

func TestFailedMoveKeepsOrderAndRefreshes(t *testing.T) {
	m, fake, ref, rec := newTestModel(t, "A", "B", "C")
	fake.err = &client.APIError{Path: "/x", Status: 409, Code: api.CodeOutOfRange, Message: "stale"}

	m, cmd := stepCmd(t, m, keyMsg("J"))
	m = run(t, m, cmd)

	mirror := rec.Mirror()
	if got := mirror.IDs(); !reflect.DeepEqual(got, []string{"B", "A", "C"}) {
		t.Fatalf("mirror = %v, want optimistic [B A C] kept", got)
	}
	if !strings.Contains(mirror.Notice, "queue changed") {
		t.Fatalf("notice = %q, want queue changed", mirror.Notice)
	}
	if ref.n != 1 {
		t.Fatalf("refresh triggers = %d, want 1", ref.n)
	}
	if !strings.Contains(m.renderCommandBar(), "queue changed") {
		t.Fatal("command bar does not show the notice")
	}
}

func TestAddFormBuildsBatch(t *testing.T) {
	m, fake, ref, _ := newTestModel(t, "A")

	m, _ = stepCmd(t, m, keyMsg("a"))
	if m.modal == nil {
		t.Fatal("add form not opened")
	}
	m = step(t, m, keyMsg("x, y"))
	m, cmd := stepCmd(t, m, keyMsg("enter"))
	if m.modal != nil {
		t.Fatal("add form still open after enter")
	}
	_ = run(t, m, cmd)

	req := fake.last(t)
	if req.Op != api.OpAddBatch || len(req.Entries) != 2 || req.Entries[1].SourceRef != "y" {
		t.Fatalf("request = %+v, want add-batch of x,y", req)
	}
	if ref.n != 1 {
		t.Fatalf("refresh triggers = %d, want 1", ref.n)
	}
}

func TestAddFormSingleRefUsesTitle(t *testing.T) {
	m, fake, _, _ := newTestModel(t)

	m, _ = stepCmd(t, m, keyMsg("a"))
	m = step(t, m, keyMsg("ref:z"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = step(t, m, keyMsg("Zed"))
	m, cmd := stepCmd(t, m, keyMsg("enter"))
	_ = run(t, m, cmd)

	req := fake.last(t)
	if req.Op != api.OpAdd || req.Entry == nil || req.Entry.Title != "Zed" || req.Entry.SourceRef != "ref:z" {
		t.Fatalf("request = %+v, want add Zed", req)
	}
}

func TestAddFormEscapeCancels(t *testing.T) {
	m, fake, _, _ := newTestModel(t)
	m, _ = stepCmd(t, m, keyMsg("a"))
	m = step(t, m, keyMsg("ref"))
	m, cmd := stepCmd(t, m, keyMsg("esc"))
	if m.modal != nil || cmd != nil || len(fake.requests) != 0 {
		t.Fatal("escape did not cancel the add form")
	}
}

func TestPlayPauseFollowsStatus(t *testing.T) {
	m, fake, _, _ := newTestModel(t, "A")
	_, cmd := stepCmd(t, m, keyMsg(" "))
	_ = run(t, m, cmd)
	if got := fake.last(t).Op; got != api.OpPause {
		t.Fatalf("op = %q, want pause", got)
	}
}

func TestJoinCarriesVoiceChannel(t *testing.T) {
	m, fake, _, _ := newTestModel(t)
	m.voice = "general"
	_, cmd := stepCmd(t, m, keyMsg("b"))
	_ = run(t, m, cmd)
	req := fake.last(t)
	if req.Op != api.OpBotJoin || req.VoiceChannel != "general" {
		t.Fatalf("request = %+v, want bot-join general", req)
	}
}

func TestContextPickerSwitchesChannel(t *testing.T) {
	m, fake, ref, rec := newTestModel(t, "A")
	fake.contexts = []string{"g_c", "g_other"}

	m, _ = stepCmd(t, m, keyMsg("c"))
	m = run(t, m, m.listContextsCmd())
	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = step(t, m, keyMsg("enter"))

	if got := rec.Context(); got != "g_other" {
		t.Fatalf("context = %q, want g_other", got)
	}
	if len(m.mirror.Entries) != 0 {
		t.Fatalf("entries after switch = %v, want none", m.mirror.IDs())
	}
	if ref.n != 1 {
		t.Fatalf("refresh triggers = %d, want 1", ref.n)
	}
}

func TestSelectionFollowsEntryAcrossSnapshots(t *testing.T) {
	m, _, _, rec := newTestModel(t, "A", "B", "C")
	m = step(t, m, keyMsg("j"))
	if m.selectedID != "B" {
		t.Fatalf("selected = %q, want B", m.selectedID)
	}
	rec.OnSnapshotReceived(api.Snapshot{Context: "g_c", ConnectionStatus: api.StatusPlaying, Entries: entries("B", "A", "C"), Version: 5})
	m = step(t, m, MirrorChangedMsg{})
	if m.selected != 0 || m.selectedID != "B" {
		t.Fatalf("selection = %d/%q, want 0/B", m.selected, m.selectedID)
	}
}

func TestViewRendersRows(t *testing.T) {
	m, _, _, _ := newTestModel(t, "A", "B")
	view := m.View()
	for _, want := range []string{"setlist", "Track A", "Track B", "Playing"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func idsOf(es []api.Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}
