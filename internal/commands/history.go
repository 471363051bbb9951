package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage conversation history",
	Long:  `View and manage your local conversation history.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conversations",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all conversations",
	RunE:  runHistoryClear,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	conversations := st.Conversations()
	if len(conversations) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t--------\t-------")

	for _, conv := range conversations {
		title := conv.Title
		if title == "" {
			title = "(empty)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			conv.ID, title, len(conv.Messages), conv.CreatedAt.Format("2006-01-02 15:04"))
	}

	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	conv, err := st.Conversation(args[0])
	if err != nil {
		return fmt.Errorf("conversation not found: %w", err)
	}

	fmt.Printf("ID: %s\n", conv.ID)
	fmt.Printf("Title: %s\n", conv.Title)
	fmt.Printf("Created: %s\n", conv.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Messages: %d\n", len(conv.Messages))
	fmt.Println()

	for i, msg := range conv.Messages {
		role := "You"
		if msg.Role == store.RoleAssistant {
			role = "Agent"
		}
		marker := ""
		if msg.IsError {
			marker = " [failed]"
		}
		fmt.Printf("[%d] %s (%s)%s:\n", i+1, role, msg.Timestamp.Format("15:04"), marker)

		content := msg.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		fmt.Printf("  %s\n\n", content)
	}

	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}

	if err := st.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Println("All conversations deleted.")
	return nil
}
