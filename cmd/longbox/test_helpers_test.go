package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"longbox/internal/config"
	"longbox/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	requests   *atomic.Int64
}

// setupCLITestEnv writes a config pointing at a fake ComicVine that knows a
// single volume (Saga, 2012) with one issue.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/search/":
			_, _ = io.WriteString(w, `{"status_code":1,"error":"OK","number_of_total_results":1,"results":[
				{"id":43898,"name":"Saga","start_year":"2012","publisher":{"id":1,"name":"Image"},"count_of_issues":66}
			]}`)
		case r.URL.Path == "/issues/":
			_, _ = io.WriteString(w, `{"status_code":1,"error":"OK","number_of_total_results":1,"results":[
				{"id":100,"issue_number":"1","name":"Chapter One","cover_date":"2012-03-14","volume":{"id":43898,"name":"Saga"}}
			]}`)
		case strings.HasPrefix(r.URL.Path, "/issue/4000-100"):
			_, _ = io.WriteString(w, `{"status_code":1,"error":"OK","number_of_total_results":1,"results":
				{"id":100,"issue_number":"1","name":"Chapter One","cover_date":"2012-03-14","volume":{"id":43898,"name":"Saga"},
				 "person_credits":[{"name":"Brian K. Vaughan","role":"writer"},{"name":"Fiona Staples","role":"artist, cover"}],
				 "description":"<p>The first chapter.</p>"}
			}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithComicVine(server.URL, "test-key"))
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, requests: &requests}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
library_dir = %q
data_dir = %q
log_dir = %q

[comicvine]
api_key = %q
base_url = %q
requests_per_hour = 3600000

[cache]
enabled = true
path = %q
`,
		cfg.Paths.LibraryDir,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.ComicVine.APIKey,
		cfg.ComicVine.BaseURL,
		cfg.Cache.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
