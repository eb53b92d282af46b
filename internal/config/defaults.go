package config

const (
	defaultDataDir = "~/.local/share/corsair/data"
	defaultLogDir  = "~/.local/share/corsair/logs"
	defaultAPIBind = "127.0.0.1:7846"

	defaultRecruitmentSeconds = 120
	defaultMilestoneSeconds   = 30
	defaultRaidMinViewers     = 1

	defaultSchedulerTickSeconds = 60
	defaultMinCooldownSeconds   = 1800
	defaultMaxCooldownSeconds   = 3600
	defaultSchedulerMinViewers  = 2
	defaultActiveMultiplier     = 1.5

	defaultCleanupIntervalSeconds = 300
	defaultRaidTimeoutSeconds     = 300
	defaultCleanupMinParticipants = 2
	defaultCleanupMinInvestment   = 500
	defaultRetentionDays          = 30

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Raid: Raid{
			RecruitmentSeconds: defaultRecruitmentSeconds,
			MilestoneSeconds:   defaultMilestoneSeconds,
			MinViewers:         defaultRaidMinViewers,
		},
		Scheduler: Scheduler{
			Enabled:            true,
			TickSeconds:        defaultSchedulerTickSeconds,
			MinCooldownSeconds: defaultMinCooldownSeconds,
			MaxCooldownSeconds: defaultMaxCooldownSeconds,
			MinViewers:         defaultSchedulerMinViewers,
			ActiveMultiplier:   defaultActiveMultiplier,
			PeakHours:          []int{19, 20, 21, 22},
		},
		Cleanup: Cleanup{
			IntervalSeconds:    defaultCleanupIntervalSeconds,
			RaidTimeoutSeconds: defaultRaidTimeoutSeconds,
			MinParticipants:    defaultCleanupMinParticipants,
			MinInvestment:      defaultCleanupMinInvestment,
			RetentionDays:      defaultRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Raids:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
