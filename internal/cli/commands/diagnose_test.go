package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ccollicutt/logpull/pkg/config"
)

const validKey = "2f7c1a5e-8b1d-4c6e-9f0a-3d2b1c4e5f6a"

func writeDiagnoseConfig(t *testing.T, content string) string {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvQueryURL, "")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return configPath
}

func TestNewDiagnoseCommand(t *testing.T) {
	cmd := NewDiagnoseCommand()

	if cmd.Use != "diagnose <config-file>" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	for _, flag := range []string{"verbose", "connectivity"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Missing flag: %s", flag)
		}
	}
}

func TestCheckConfigExists_NotFound(t *testing.T) {
	result := checkConfigExists("/nonexistent/config.yaml")

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "not found") {
		t.Errorf("Expected 'not found' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "empty.yaml")

	// Create empty file
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	result := checkConfigExists(configPath)

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "empty") {
		t.Errorf("Expected 'empty' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Directory(t *testing.T) {
	result := checkConfigExists(t.TempDir())

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "directory") {
		t.Errorf("Expected 'directory' in message, got: %s", result.Message)
	}
}

func TestCheckConfigParseable_InvalidYAML(t *testing.T) {
	configPath := writeDiagnoseConfig(t, "api_key: [unclosed\n")

	cfg, result := checkConfigParseable(context.Background(), configPath)
	if cfg != nil {
		t.Error("Expected nil config")
	}
	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if len(result.Suggests) == 0 {
		t.Error("Expected YAML hints")
	}
}

func TestCheckConfigValid_ListsEveryProblem(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.QueryURL = "ftp://nowhere"
	cfg.Queries = []config.QueryConfig{{Name: "a"}}

	result := checkConfigValid(cfg)
	if result.Status != "error" {
		t.Fatalf("Expected error status, got %s", result.Status)
	}
	if result.Message != "3 problem(s) found" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
	if len(result.Details) != 3 {
		t.Errorf("Expected 3 details, got %v", result.Details)
	}
}

func TestCheckAPIKey(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")

	tests := []struct {
		key    string
		status string
	}{
		{"", "error"},
		{"not-a-key", "warning"},
		{validKey, "ok"},
	}

	for _, tt := range tests {
		cfg := config.DefaultConfig()
		cfg.APIKey = tt.key
		if got := checkAPIKey(cfg); got.Status != tt.status {
			t.Errorf("checkAPIKey(%q) = %s (%s), want %s", tt.key, got.Status, got.Message, tt.status)
		}
	}
}

func TestCheckAPIKey_FromEnvironment(t *testing.T) {
	t.Setenv(config.EnvAPIKey, validKey)

	cfg := config.DefaultConfig()
	cfg.APIKey = validKey
	result := checkAPIKey(cfg)
	if !strings.Contains(result.Message, config.EnvAPIKey) {
		t.Errorf("Expected key source in message, got: %s", result.Message)
	}
}

func TestCheckQueryURL(t *testing.T) {
	tests := []struct {
		url    string
		status string
	}{
		{"https://rest.logentries.com/query/logs", "ok"},
		{"http://localhost:8080/query/logs", "warning"},
		{"ftp://example.com", "error"},
		{"://bad", "error"},
	}

	for _, tt := range tests {
		cfg := config.DefaultConfig()
		cfg.QueryURL = tt.url
		if got := checkQueryURL(cfg); got.Status != tt.status {
			t.Errorf("checkQueryURL(%q) = %s, want %s", tt.url, got.Status, tt.status)
		}
	}
}

func TestCheckTiming(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := checkTiming(cfg, &DiagnoseOptions{}); got.Status != "ok" {
		t.Errorf("Expected defaults to pass, got %s: %v", got.Status, got.Details)
	}

	cfg.PollInterval = 100 * time.Millisecond
	cfg.Retry.MaxAttempts = 1
	got := checkTiming(cfg, &DiagnoseOptions{})
	if got.Status != "warning" || len(got.Details) != 2 {
		t.Errorf("Expected 2 warnings, got %s: %v", got.Status, got.Details)
	}
}

func TestCheckQueries(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Queries = []config.QueryConfig{
		{Name: "good", LogID: validKey, Query: "where(level=ERROR) calculate(count)"},
		{Name: "odd-id", LogID: "my-log"},
		{Name: "odd-query", LogID: validKey, Query: "level=ERROR"},
		{Name: "incomplete"},
	}

	results := checkQueries(cfg, &DiagnoseOptions{})
	want := []string{"ok", "warning", "warning", "error"}
	if len(results) != len(want) {
		t.Fatalf("Expected %d results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r.Status != want[i] {
			t.Errorf("%s: status = %s, want %s (%v)", r.Check, r.Status, want[i], r.Details)
		}
	}
}

func TestCheckQueries_NoneConfigured(t *testing.T) {
	cfg := config.DefaultConfig()

	if results := checkQueries(cfg, &DiagnoseOptions{}); len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
	if results := checkQueries(cfg, &DiagnoseOptions{Verbose: true}); len(results) != 1 {
		t.Errorf("Expected a note in verbose mode, got %d", len(results))
	}
}

func TestCheckConnectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != validKey {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.QueryURL = server.URL + "/query/logs"

	cfg.APIKey = validKey
	if got := checkConnectivity(context.Background(), cfg); got.Status != "ok" {
		t.Errorf("Expected reachable, got %s: %s", got.Status, got.Message)
	}

	cfg.APIKey = "wrong"
	got := checkConnectivity(context.Background(), cfg)
	if got.Status != "error" || !strings.Contains(got.Message, "rejected") {
		t.Errorf("Expected rejected key, got %s: %s", got.Status, got.Message)
	}
}

func TestCheckConnectivity_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	unreachable := server.URL
	server.Close()

	cfg := config.DefaultConfig()
	cfg.QueryURL = unreachable

	if got := checkConnectivity(context.Background(), cfg); got.Status != "error" {
		t.Errorf("Expected error, got %s: %s", got.Status, got.Message)
	}
}

func TestRunDiagnose_ValidConfig(t *testing.T) {
	configPath := writeDiagnoseConfig(t, `api_key: `+validKey+`
queries:
  - name: errors
    log_id: `+validKey+`
    query: where(level=ERROR)
`)

	var buf bytes.Buffer
	if err := runDiagnose(context.Background(), &buf, configPath, &DiagnoseOptions{Verbose: true}); err != nil {
		t.Fatalf("runDiagnose() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"[PASS] Config File",
		"[PASS] Config Validation",
		"[PASS] API Key",
		"[PASS] Query: errors",
		"Summary: 7 passed, 0 warnings, 0 errors",
		"Configuration looks good!",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}
}

func TestRunDiagnose_InvalidConfig(t *testing.T) {
	configPath := writeDiagnoseConfig(t, "query_url: ftp://nowhere\n")

	var buf bytes.Buffer
	if err := runDiagnose(context.Background(), &buf, configPath, &DiagnoseOptions{}); err != nil {
		t.Fatalf("runDiagnose() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "[FAIL] Config Validation") {
		t.Errorf("Expected validation failure:\n%s", output)
	}
	if !strings.Contains(output, "Fix the errors above") {
		t.Errorf("Expected error summary:\n%s", output)
	}
}

func TestRunDiagnose_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := runDiagnose(context.Background(), &buf, "/nonexistent/config.yaml", &DiagnoseOptions{}); err != nil {
		t.Fatalf("runDiagnose() error = %v", err)
	}

	if !strings.Contains(buf.String(), "Summary: 0 passed, 0 warnings, 1 errors") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}
