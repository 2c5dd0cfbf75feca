// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

// Checks the environment a watchd deployment needs before it starts.
func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	targets := strings.TrimSpace(os.Getenv("TARGETS_FILE"))
	webhook := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK"))

	if admin == "" {
		warn("ADMIN_API_KEYS is empty (write routes will be open).")
	} else {
		ok("admin keys configured")
	}
	if pub == "" {
		warn("PUBLIC_API_KEYS is empty (read routes will be open).")
	}
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if db == "" {
		warn("DATABASE_URL is empty; check history will not survive restarts.")
	} else if !strings.HasPrefix(db, "postgres://") && !strings.HasPrefix(db, "postgresql://") {
		fail("DATABASE_URL does not look like a postgres DSN.")
	} else {
		ok("database DSN looks sane")
	}

	if targets != "" {
		if _, err := os.Stat(targets); err != nil {
			fail("TARGETS_FILE points at a missing file: " + targets)
		}
		ok("targets file present: " + targets)
	}

	if webhook != "" && !strings.HasPrefix(webhook, "https://") {
		warn("SLACK_WEBHOOK is not https.")
	}

	ok("preflight passed")
}
