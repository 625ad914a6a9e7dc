package main

import (
	"strings"
	"testing"
)

func TestStatsEmptyRegistry(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stats"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "No clients registered yet.")
}

func TestProcessAndStats(t *testing.T) {
	env := setupCLITestEnv(t)
	wp := fakeWordPress(t)

	out, _, err := runCLI(t, []string{
		"process", "acme", wp.URL,
		"--user", "admin", "--password", "pw",
	}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "finished")
	requireContains(t, out, "updated:    1")

	out, _, err = runCLI(t, []string{"stats"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "acme")
	requireContains(t, out, "Images processed: 1")
	if strings.Contains(out, "pw") && !strings.Contains(wp.URL, "pw") {
		t.Fatalf("stats output leaks credentials: %q", out)
	}
}

func TestProcessRequiresCredentials(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"process", "acme", "https://example.com"}, env.addr, env.configPath)
	if err == nil {
		t.Fatal("expected missing credential error")
	}
	requireContains(t, err.Error(), "--user and --password are required")
}

func TestRunsListing(t *testing.T) {
	env := setupCLITestEnv(t)
	wp := fakeWordPress(t)

	if _, _, err := runCLI(t, []string{
		"process", "acme", wp.URL,
		"--user", "admin", "--password", "pw",
	}, env.addr, env.configPath); err != nil {
		t.Fatalf("process: %v", err)
	}

	out, _, err := runCLI(t, []string{"runs", "--client", "acme"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "acme")
	requireContains(t, out, "api")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon")
	requireContains(t, out, "[OK]")
	requireContains(t, out, "basic")
}

func TestStatusJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status", "--json"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	requireContains(t, out, `"running": true`)
}

func TestDaemonUnreachable(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.Stop()

	_, _, err := runCLI(t, []string{"stats"}, env.addr, env.configPath)
	if err == nil {
		t.Fatal("expected connection error")
	}
	requireContains(t, err.Error(), "connect to daemon")
}
