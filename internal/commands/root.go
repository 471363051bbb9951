// Package commands provides the CLI commands for agentchat.
package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/api"
	"github.com/diogo/agentchat/internal/config"
	"github.com/diogo/agentchat/internal/dispatch"
	"github.com/diogo/agentchat/internal/store"
)

var (
	// Global flags
	serverFlag string
	streamFlag bool
	fileFlag   string
	outputFlag string
	rawFlag    bool
	copyFlag   bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "agentchat [prompt]",
	Short: "CLI for the conversational agent backend",
	Long: `agentchat is a command-line client for the conversational agent backend:
chat, web search, document Q&A, PDF conversion and speech.

Examples:
  agentchat chat                        Start interactive chat
  agentchat "What is Go?"               Send a single question
  agentchat "Summarize" --stream        Stream the answer as it arrives
  agentchat -f prompt.md                Read the question from a file
  cat prompt.md | agentchat             Read the question from stdin
  agentchat search "golang generics"    Search the web
  agentchat convert report.pdf          Convert a PDF to markdown
  agentchat login --browser chrome      Import the backend session cookie`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("agentchat %s (built %s)\n", Version, BuildTime)
			return nil
		}

		stat, _ := os.Stdin.Stat()
		hasStdin := (stat.Mode() & os.ModeCharDevice) == 0

		if fileFlag != "" {
			data, err := os.ReadFile(fileFlag)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			return runQuery(string(data), rawFlag)
		}

		if hasStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return runQuery(string(data), rawFlag)
		}

		if len(args) > 0 {
			return runQuery(args[0], rawFlag)
		}

		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Backend base URL (overrides config)")
	rootCmd.Flags().BoolVar(&streamFlag, "stream", false, "Stream the answer as it arrives")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read the question from a file")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save the answer to a file")
	rootCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print the raw answer without styling")
	rootCmd.Flags().BoolVar(&copyFlag, "copy", false, "Copy the answer to the clipboard")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(loginCmd)
}

// loadedConfig returns the config with the --server override applied.
func loadedConfig() config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}
	return cfg
}

// newClient builds the API client from config, attaching the saved session
// when one exists.
func newClient(cfg config.Config) (*api.Client, error) {
	opts := []api.ClientOption{
		api.WithBaseURL(cfg.ServerURL),
		api.WithTimeout(time.Duration(cfg.RequestTimeout) * time.Second),
	}
	if session, err := config.LoadSession(); err == nil {
		opts = append(opts, api.WithSession(session))
	}
	return api.NewClient(opts...)
}

// openStore opens the persistent conversation store.
func openStore() (*store.Store, error) {
	path, err := config.GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return store.NewStore(path)
}

// newDispatcher wires the client and store with the configured pacing.
func newDispatcher(client *api.Client, st *store.Store, cfg config.Config, streaming bool) *dispatch.Dispatcher {
	return dispatch.New(client, st,
		dispatch.WithStreamDelay(time.Duration(cfg.StreamDelayMS)*time.Millisecond),
		dispatch.WithStreamingChat(streaming),
	)
}
