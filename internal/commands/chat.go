package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/dispatch"
	"github.com/diogo/agentchat/internal/tui"
)

var (
	chatModeFlag   string
	chatStreamFlag bool
	chatResumeFlag string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start interactive chat",
	Long: `Start the interactive chat interface.

Messages are answered by the agent backend. Use Tab to cycle between chat,
search and markdown modes, and /doc <path> to question a document.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatModeFlag, "mode", "chat", "Starting mode (chat, search, markdown)")
	chatCmd.Flags().BoolVar(&chatStreamFlag, "stream", false, "Stream plain chat answers as they arrive")
	chatCmd.Flags().StringVar(&chatResumeFlag, "resume", "", "Resume a conversation by id")
}

func runChat(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(chatModeFlag)
	if err != nil {
		return err
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

	if chatResumeFlag != "" {
		if err := st.Select(chatResumeFlag); err != nil {
			return fmt.Errorf("cannot resume %s: %w", chatResumeFlag, err)
		}
	}

	d := newDispatcher(client, st, cfg, chatStreamFlag)
	return tui.RunChat(d, st, mode)
}

func parseMode(s string) (dispatch.Mode, error) {
	switch s {
	case "", "chat":
		return dispatch.ModeChat, nil
	case "search":
		return dispatch.ModeSearch, nil
	case "markdown", "md":
		return dispatch.ModeMarkdown, nil
	default:
		return "", fmt.Errorf("unknown mode: %s (chat, search, markdown)", s)
	}
}
