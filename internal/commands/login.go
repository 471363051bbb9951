package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/agentchat/internal/browser"
	"github.com/diogo/agentchat/internal/config"
)

var loginBrowserFlag string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Import the backend session from a browser",
	Long: `Import the backend session cookie from a local browser where you are
already logged in, verify it against the backend, and save it for future
commands.`,
	RunE: runLogin,
}

var loginStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session status",
	RunE:  runLoginStatus,
}

func init() {
	loginCmd.Flags().StringVar(&loginBrowserFlag, "browser", "auto", "Browser to read the session from (auto, chrome, chromium, firefox, edge, opera)")
	loginCmd.AddCommand(loginStatusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	browserType, err := browser.ParseBrowser(loginBrowserFlag)
	if err != nil {
		return err
	}

	cfg := loadedConfig()

	spin := newSpinner("Reading browser cookies")
	spin.start()

	result, err := browser.ExtractSession(context.Background(), browserType, cfg.ServerURL)
	if err != nil {
		spin.stopWithError()
		if available := browser.ListAvailableBrowsers(); len(available) > 0 {
			fmt.Printf("Browsers with cookie stores: %s\n", strings.Join(available, ", "))
		}
		return err
	}
	spin.stopWithSuccess("Session found in " + result.BrowserName)

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()
	client.SetSession(result.Session)

	spin = newSpinner("Verifying session")
	spin.start()

	ok, err := client.AuthStatus(context.Background())
	if err != nil {
		spin.stopWithError()
		return fmt.Errorf("could not verify session: %w", err)
	}
	if !ok {
		spin.stopWithError()
		return fmt.Errorf("the imported session was rejected by the backend; log in again in %s", result.BrowserName)
	}
	spin.stopWithSuccess("Session verified")

	if err := config.SaveSession(result.Session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	fmt.Println("Session saved. You are logged in.")
	return nil
}

func runLoginStatus(cmd *cobra.Command, args []string) error {
	session, err := config.LoadSession()
	if err != nil {
		fmt.Println("Not logged in. Run 'agentchat login' to import a session.")
		return nil
	}

	fmt.Printf("Session imported from %s at %s\n",
		session.Browser, session.ImportedAt.Format("2006-01-02 15:04"))

	cfg := loadedConfig()
	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	ok, err := client.AuthStatus(context.Background())
	if err != nil {
		return fmt.Errorf("could not reach the backend: %w", err)
	}
	if ok {
		fmt.Println("Backend reports: authenticated.")
	} else {
		fmt.Println("Backend reports: NOT authenticated. Run 'agentchat login' again.")
	}
	return nil
}
