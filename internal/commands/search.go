package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/normalize"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the web through the agent",
	Long: `Run a web search through the agent backend. The answer combines an
LLM-written overview with the crawled sources it drew on.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := loadedConfig()

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	spin := newSpinner("Searching")
	spin.start()

	payload, err := client.Search(context.Background(), args[0])
	if err != nil {
		spin.stopWithError()
		return err
	}
	spin.stopWithSuccess("Done")

	printAnswer(normalize.Search(payload), rawFlag, cfg.MarkdownStyle)
	return nil
}
