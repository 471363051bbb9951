package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/diogo/agentchat/internal/dispatch"
	"github.com/diogo/agentchat/internal/render"
	"github.com/diogo/agentchat/internal/store"
)

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorAccent   = lipgloss.Color("#bb9af7")
)

// spinner is the animated progress indicator for one-shot commands.
type spinner struct {
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

func newSpinner(message string) *spinner {
	return &spinner{
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(os.Stderr, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(os.Stderr, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	char := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(chars[s.frame%len(chars)])
	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorAccent).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	fmt.Fprintf(os.Stderr, "\r\033[K%s %s %s", char, msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	check := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(message)
	fmt.Fprintf(os.Stderr, "%s %s\n", check, msg)
}

func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// runQuery answers a single question and prints the result. With rawOutput
// only the answer text is written, nothing else.
func runQuery(prompt string, rawOutput bool) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	cfg := loadedConfig()

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	d := newDispatcher(client, st, cfg, streamFlag)

	var spin *spinner
	if !rawOutput {
		spin = newSpinner("Thinking")
		spin.start()
	}

	pending, err := d.Submit(context.Background(), dispatch.Request{
		Message: prompt,
		Mode:    dispatch.ModeChat,
	})
	if err != nil {
		if spin != nil {
			spin.stopWithError()
		}
		return err
	}

	conv, err := st.Conversation(pending.ConversationID)
	if err != nil {
		if spin != nil {
			spin.stopWithError()
		}
		return err
	}

	answer := findAnswer(conv, pending)
	if answer.IsError {
		if spin != nil {
			spin.stopWithError()
		}
		return fmt.Errorf("%s", answer.Content)
	}
	if spin != nil {
		spin.stopWithSuccess("Done")
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(answer.Content), 0o644); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
		if !rawOutput {
			fmt.Fprintf(os.Stderr, "Saved to %s\n", outputFlag)
		}
	}

	printAnswer(answer.Content, rawOutput, cfg.MarkdownStyle)

	if copyFlag || cfg.CopyToClipboard {
		if err := clipboard.WriteAll(answer.Content); err == nil && !rawOutput {
			fmt.Fprintln(os.Stderr, "Answer copied to clipboard.")
		}
	}
	return nil
}

func findAnswer(conv store.Conversation, pending store.Pending) store.Message {
	for _, msg := range conv.Messages {
		if msg.ID == pending.MessageID {
			return msg
		}
	}
	return store.Message{}
}

// printAnswer writes the answer, styled when stdout is a terminal.
func printAnswer(content string, rawOutput bool, style string) {
	if rawOutput || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(content)
		return
	}

	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}

	opts := render.DefaultOptions().WithWidth(width - 2).WithStyle(style)
	rendered, err := render.Markdown(content, opts)
	if err != nil {
		fmt.Println(content)
		return
	}
	fmt.Println(strings.TrimRight(rendered, "\n"))
}
