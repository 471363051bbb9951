package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/agentchat/internal/dispatch"
	"github.com/diogo/agentchat/internal/render"
	"github.com/diogo/agentchat/internal/store"
)

// storeTickMsg drives the store revision poll while operations run in the
// background.
type storeTickMsg time.Time

type (
	submitDoneMsg struct {
		pending store.Pending
		err     error
	}
	noticeMsg struct {
		text string
	}
)

// Model is the chat TUI state. All conversation data lives in the store;
// the model only holds presentation state and repaints when the store's
// revision moves.
type Model struct {
	dispatcher *dispatch.Dispatcher
	store      *store.Store

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	mode       dispatch.Mode
	attachment string
	loading    bool
	ready      bool
	lastRev    uint64
	notice     string
	err        error

	width  int
	height int
}

// NewChatModel creates the chat TUI model.
func NewChatModel(d *dispatch.Dispatcher, st *store.Store, mode dispatch.Mode) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		dispatcher: d,
		store:      st,
		textarea:   ta,
		spinner:    s,
		mode:       mode,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, storeTick())
}

// storeTick schedules the next revision poll.
func storeTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return storeTickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.textarea.SetWidth(contentWidth - 4)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
			m.textarea.SetWidth(contentWidth - 4)
		}
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if !m.loading {
				return m, tea.Quit
			}

		case "tab":
			if !m.loading {
				m.mode = m.mode.Cycle()
			}

		case "ctrl+n":
			if !m.loading {
				m.store.NewConversation()
				m.attachment = ""
				m.notice = ""
				m.refreshViewport()
			}

		case "ctrl+r":
			if !m.loading {
				if cmd := m.retryLastFailed(); cmd != nil {
					m.loading = true
					return m, tea.Batch(cmd, m.spinner.Tick, storeTick())
				}
			}

		case "ctrl+y":
			return m, m.copyLastAnswer()

		case "enter":
			if !m.loading && strings.TrimSpace(m.textarea.Value()) != "" {
				input := strings.TrimSpace(m.textarea.Value())
				m.textarea.Reset()

				if handled, model, cmd := m.handleCommand(input); handled {
					return model, cmd
				}

				m.loading = true
				m.err = nil
				m.notice = ""
				attachment := m.attachment
				m.attachment = ""

				return m, tea.Batch(
					m.submit(input, attachment),
					m.spinner.Tick,
					storeTick(),
				)
			}
		}

	case submitDoneMsg:
		m.loading = false
		m.err = msg.err
		m.refreshViewport()
		m.viewport.GotoBottom()

	case noticeMsg:
		m.notice = msg.text

	case storeTickMsg:
		if rev := m.store.Revision(); rev != m.lastRev {
			m.lastRev = rev
			m.refreshViewport()
			m.viewport.GotoBottom()
		}
		cmds = append(cmds, storeTick())

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if !m.loading {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleCommand intercepts slash commands typed into the input.
func (m Model) handleCommand(input string) (bool, tea.Model, tea.Cmd) {
	switch {
	case input == "exit" || input == "quit" || input == "/exit" || input == "/quit":
		return true, m, tea.Quit

	case input == "/new":
		m.store.NewConversation()
		m.attachment = ""
		m.refreshViewport()
		return true, m, nil

	case input == "/clear":
		if err := m.store.ClearAll(); err != nil {
			m.err = err
			return true, m, nil
		}
		m.attachment = ""
		m.notice = "All conversations deleted."
		m.refreshViewport()
		return true, m, nil

	case input == "/detach":
		if convID := m.store.CurrentID(); convID != "" {
			_ = m.store.ClearDocument(convID)
		}
		m.notice = "Document detached."
		return true, m, nil

	case strings.HasPrefix(input, "/doc "):
		path := strings.TrimSpace(strings.TrimPrefix(input, "/doc "))
		if _, err := os.Stat(path); err != nil {
			m.err = fmt.Errorf("cannot read %s: %w", path, err)
			return true, m, nil
		}
		m.attachment = path
		m.notice = "Document staged. Your next message will be answered from it."
		return true, m, nil

	case input == "/mode":
		m.mode = m.mode.Cycle()
		return true, m, nil
	}
	return false, m, nil
}

// submit runs the dispatcher in the background. The store takes over from
// here; ticks repaint as snapshots land.
func (m Model) submit(message, attachment string) tea.Cmd {
	d, st, mode := m.dispatcher, m.store, m.mode
	convID := st.CurrentID()
	return func() tea.Msg {
		pending, err := d.Submit(context.Background(), dispatch.Request{
			ConversationID: convID,
			Message:        message,
			Mode:           mode,
			Attachment:     attachment,
		})
		return submitDoneMsg{pending: pending, err: err}
	}
}

// retryLastFailed re-submits the newest failed assistant message in the
// current conversation.
func (m Model) retryLastFailed() tea.Cmd {
	conv, ok := m.store.Current()
	if !ok {
		return nil
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if msg.Role != store.RoleAssistant || !msg.IsError {
			continue
		}
		d, mode := m.dispatcher, m.mode
		return func() tea.Msg {
			pending, err := d.Retry(context.Background(), conv.ID, msg.ID, mode)
			return submitDoneMsg{pending: pending, err: err}
		}
	}
	return nil
}

// copyLastAnswer puts the newest completed assistant answer on the system
// clipboard.
func (m Model) copyLastAnswer() tea.Cmd {
	conv, ok := m.store.Current()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		for i := len(conv.Messages) - 1; i >= 0; i-- {
			msg := conv.Messages[i]
			if msg.Role != store.RoleAssistant || msg.IsThinking || msg.IsError {
				continue
			}
			if err := clipboard.WriteAll(msg.Content); err != nil {
				return noticeMsg{text: "Clipboard unavailable: " + err.Error()}
			}
			return noticeMsg{text: "Answer copied to clipboard."}
		}
		return noticeMsg{text: "Nothing to copy yet."}
	}
}

func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	headerParts := []string{
		titleStyle.Render("✦ Agent Chat"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render("mode: " + string(m.mode)),
	}
	if doc := m.currentDocument(); doc != "" {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			documentBadgeStyle.Render("📄 "+doc),
		)
	}
	header := headerStyle.Width(contentWidth).Render(
		lipgloss.JoinHorizontal(lipgloss.Center, headerParts...))
	sections = append(sections, header)

	var messagesContent string
	if conv, ok := m.store.Current(); !ok || len(conv.Messages) == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	var inputContent string
	if m.loading {
		inputContent = m.spinner.View() + loadingStyle.Render(" Thinking...")
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.notice != "" {
		sections = append(sections, hintStyle.Render("  "+m.notice))
	}
	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("⚠ %v", m.err)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// currentDocument returns the staged or bound document name, if any.
func (m Model) currentDocument() string {
	if m.attachment != "" {
		return m.attachment
	}
	if convID := m.store.CurrentID(); convID != "" {
		if doc := m.store.DocumentFor(convID); doc != nil {
			return doc.Name
		}
	}
	return ""
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		welcomeIconStyle.Width(width).Render("✦"),
		"",
		welcomeTitleStyle.Width(width).Render("Welcome to Agent Chat"),
		"",
		welcomeStyle.Width(width).Render("Ask anything, /doc <path> to question a document, Tab to change mode"),
		"",
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Tab", "Mode"},
		{"^N", "New chat"},
		{"^R", "Retry"},
		{"^Y", "Copy"},
		{"Esc", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		))
	}

	bar := strings.Join(items, "  │  ")
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// refreshViewport re-renders the current conversation into the viewport.
func (m *Model) refreshViewport() {
	conv, ok := m.store.Current()
	if !ok {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range conv.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		switch {
		case msg.Role == store.RoleUser:
			label := userLabelStyle.Render("⬤ You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(msg.Content)
			content.WriteString(label + "\n" + bubble)

		case msg.IsThinking:
			label := assistantLabelStyle.Render("✦ Agent")
			body := msg.Content
			if body == "" {
				body = hintStyle.Render("thinking...")
			}
			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(body)
			content.WriteString(label + "\n" + bubble)

		case msg.IsError:
			label := errorStyle.Render("✦ Agent")
			body := msg.Content + "\n" + hintStyle.Render("Ctrl+R to retry")
			bubble := errorBubbleStyle.Width(bubbleWidth).Render(body)
			content.WriteString(label + "\n" + bubble)

		default:
			label := assistantLabelStyle.Render("✦ Agent")
			rendered, err := render.MarkdownWithWidth(msg.Content, bubbleWidth-4)
			if err != nil {
				rendered = msg.Content
			}
			rendered = strings.TrimRight(rendered, "\n")
			bubble := assistantBubbleStyle.Width(bubbleWidth).Render(rendered)
			content.WriteString(label + "\n" + bubble)
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// RunChat starts the chat TUI.
func RunChat(d *dispatch.Dispatcher, st *store.Store, mode dispatch.Mode) error {
	p := tea.NewProgram(
		NewChatModel(d, st, mode),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
