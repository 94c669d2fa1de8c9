package main

import (
	"path/filepath"
	"testing"

	"github.com/sells-group/outreach-cli/internal/config"
)

// useTestConfig installs a local SQLite config as the global cfg for the
// duration of the test.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "outreach.db"),
		},
		Responder: config.ResponderConfig{
			From:         "research@example.com",
			CalendarLink: "https://cal.example.com/strategy",
			Signature:    "The Team",
			DryRun:       true,
			MaxAttempts:  3,
		},
		Batch:    config.BatchConfig{MaxConcurrentLeads: 4},
		Server:   config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
		Kafka:    config.KafkaConfig{Topic: "outreach.replies"},
		Followup: config.FollowupConfig{Backend: "store", PollIntervalSecs: 60, BatchSize: 100},
		Temporal: config.TemporalConfig{HostPort: "localhost:7233", Namespace: "default", TaskQueue: "outreach-followups"},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}
