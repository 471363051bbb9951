package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/agentchat/internal/dispatch"
	"github.com/diogo/agentchat/internal/store"
)

func testModel(t *testing.T) Model {
	t.Helper()
	st := store.NewMemoryStore()
	d := dispatch.New(nil, st)
	return NewChatModel(d, st, dispatch.ModeChat)
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func TestNewChatModel_Defaults(t *testing.T) {
	m := testModel(t)

	if m.mode != dispatch.ModeChat {
		t.Errorf("mode = %s", m.mode)
	}
	if m.loading || m.ready {
		t.Error("model should start idle and unsized")
	}
	if m.textarea.Placeholder == "" {
		t.Error("textarea placeholder not set")
	}
}

func TestView_BeforeReady(t *testing.T) {
	m := testModel(t)
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("unsized model should show the init screen")
	}
}

func TestWindowSize_InitializesViewport(t *testing.T) {
	m := sized(t, testModel(t))

	if !m.ready {
		t.Fatal("model not ready after window size")
	}
	if m.viewport.Width <= 0 || m.viewport.Height < 5 {
		t.Errorf("viewport = %dx%d", m.viewport.Width, m.viewport.Height)
	}
	if !strings.Contains(m.View(), "Welcome to Agent Chat") {
		t.Error("empty conversation should show the welcome screen")
	}
}

func TestHandleCommand_Quit(t *testing.T) {
	m := sized(t, testModel(t))

	for _, input := range []string{"exit", "quit", "/exit", "/quit"} {
		handled, _, cmd := m.handleCommand(input)
		if !handled || cmd == nil {
			t.Errorf("%q should quit", input)
		}
	}
}

func TestHandleCommand_New(t *testing.T) {
	m := sized(t, testModel(t))
	before := len(m.store.Conversations())

	handled, model, _ := m.handleCommand("/new")
	if !handled {
		t.Fatal("/new not handled")
	}
	m = model.(Model)
	if len(m.store.Conversations()) != before+1 {
		t.Error("/new did not create a conversation")
	}
}

func TestHandleCommand_ClearDeletesEverything(t *testing.T) {
	m := sized(t, testModel(t))
	if _, err := m.store.Append("", "doomed history"); err != nil {
		t.Fatal(err)
	}

	handled, model, _ := m.handleCommand("/clear")
	if !handled {
		t.Fatal("/clear not handled")
	}
	m = model.(Model)
	if len(m.store.Conversations()) != 0 {
		t.Error("/clear left conversations behind")
	}
	if m.notice == "" {
		t.Error("clearing should post a notice")
	}
}

func TestHandleCommand_DocStagesAttachment(t *testing.T) {
	docPath := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(docPath, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := sized(t, testModel(t))
	handled, model, _ := m.handleCommand("/doc " + docPath)
	if !handled {
		t.Fatal("/doc not handled")
	}
	m = model.(Model)
	if m.attachment != docPath {
		t.Errorf("attachment = %q", m.attachment)
	}
	if m.notice == "" {
		t.Error("staging a document should post a notice")
	}
}

func TestHandleCommand_DocMissingFile(t *testing.T) {
	m := sized(t, testModel(t))

	handled, model, _ := m.handleCommand("/doc /does/not/exist.pdf")
	if !handled {
		t.Fatal("/doc not handled")
	}
	m = model.(Model)
	if m.err == nil {
		t.Error("missing file should set an error")
	}
	if m.attachment != "" {
		t.Error("missing file must not be staged")
	}
}

func TestHandleCommand_ModeCycles(t *testing.T) {
	m := sized(t, testModel(t))

	_, model, _ := m.handleCommand("/mode")
	m = model.(Model)
	if m.mode != dispatch.ModeSearch {
		t.Errorf("mode = %s, want search", m.mode)
	}
}

func TestTabCyclesMode(t *testing.T) {
	m := sized(t, testModel(t))

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.mode != dispatch.ModeSearch {
		t.Errorf("mode = %s, want search", m.mode)
	}
}

func TestRetryLastFailed_NothingToRetry(t *testing.T) {
	m := sized(t, testModel(t))
	if m.retryLastFailed() != nil {
		t.Error("retry with no failed message should be a no-op")
	}
}

func TestRefreshViewport_RendersTranscript(t *testing.T) {
	m := sized(t, testModel(t))

	p, err := m.store.Append("", "What is Go?")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.store.Complete(p, "A programming language."); err != nil {
		t.Fatal(err)
	}

	m.refreshViewport()
	view := m.viewport.View()
	if !strings.Contains(view, "What is Go?") {
		t.Errorf("user message missing:\n%s", view)
	}
	if !strings.Contains(view, "programming language") {
		t.Errorf("assistant answer missing:\n%s", view)
	}
}

func TestRefreshViewport_FailedMessageShowsRetryHint(t *testing.T) {
	m := sized(t, testModel(t))

	p, _ := m.store.Append("", "doomed")
	if err := m.store.Fail(p, "network", "Could not reach the server."); err != nil {
		t.Fatal(err)
	}

	m.refreshViewport()
	if !strings.Contains(m.viewport.View(), "Ctrl+R to retry") {
		t.Error("failed message missing retry hint")
	}
}

func TestStoreTick_RepaintsOnRevisionChange(t *testing.T) {
	m := sized(t, testModel(t))

	p, _ := m.store.Append("", "streaming")
	_ = m.store.UpdateStreaming(p, "partial text")

	updated, _ := m.Update(storeTickMsg{})
	m = updated.(Model)
	if m.lastRev != m.store.Revision() {
		t.Error("tick did not sync revision")
	}
	if !strings.Contains(m.viewport.View(), "partial text") {
		t.Error("tick did not repaint the snapshot")
	}
}
