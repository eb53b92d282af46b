package testsupport

import (
	"path/filepath"
	"testing"

	"corsair/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Windows are shortened so timer-driven tests stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Raid.RecruitmentSeconds = 2
	cfg.Raid.MilestoneSeconds = 1
	cfg.Scheduler.Enabled = false
	cfg.Cleanup.IntervalSeconds = 1
	cfg.Cleanup.RaidTimeoutSeconds = 2

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithRecruitmentSeconds overrides the recruitment window length.
func WithRecruitmentSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Raid.RecruitmentSeconds = seconds
	}
}

// WithMilestoneSeconds overrides the milestone window length.
func WithMilestoneSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Raid.MilestoneSeconds = seconds
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}
