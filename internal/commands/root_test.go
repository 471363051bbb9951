package commands

import (
	"testing"

	"github.com/diogo/agentchat/internal/dispatch"
)

func TestRootCommand_Help(t *testing.T) {
	if rootCmd.Use != "agentchat [prompt]" {
		t.Errorf("Use = %s", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Short description should not be empty")
	}
	if rootCmd.Long == "" {
		t.Error("Long description should not be empty")
	}
	if rootCmd.Args == nil {
		t.Error("Args validation should be configured")
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := map[string]bool{
		"chat":       false,
		"search":     false,
		"convert":    false,
		"transcribe": false,
		"speak":      false,
		"history":    false,
		"login":      false,
	}

	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    dispatch.Mode
		wantErr bool
	}{
		{"", dispatch.ModeChat, false},
		{"chat", dispatch.ModeChat, false},
		{"search", dispatch.ModeSearch, false},
		{"markdown", dispatch.ModeMarkdown, false},
		{"md", dispatch.ModeMarkdown, false},
		{"telepathy", "", true},
	}

	for _, tt := range tests {
		got, err := parseMode(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseMode(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMode(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMode(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestRunQuery_EmptyPrompt(t *testing.T) {
	if err := runQuery("   ", true); err == nil {
		t.Error("empty prompt should be rejected")
	}
}

func TestLoadedConfig_ServerOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	serverFlag = "http://example.test:9999"
	defer func() { serverFlag = "" }()

	cfg := loadedConfig()
	if cfg.ServerURL != "http://example.test:9999" {
		t.Errorf("ServerURL = %s", cfg.ServerURL)
	}
}

func TestHistoryCommands_EmptyStore(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := runHistoryList(historyListCmd, nil); err != nil {
		t.Errorf("list on empty store failed: %v", err)
	}
	if err := runHistoryClear(historyClearCmd, nil); err != nil {
		t.Errorf("clear on empty store failed: %v", err)
	}
	if err := runHistoryShow(historyShowCmd, []string{"missing"}); err == nil {
		t.Error("show with unknown id should fail")
	}
}
