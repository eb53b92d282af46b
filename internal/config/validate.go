package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRaid(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateRaid() error {
	return ensurePositiveMap(map[string]int{
		"raid.recruitment_seconds": c.Raid.RecruitmentSeconds,
		"raid.milestone_seconds":   c.Raid.MilestoneSeconds,
		"raid.min_viewers":         c.Raid.MinViewers,
	})
}

func (c *Config) validateScheduler() error {
	if err := ensurePositiveMap(map[string]int{
		"scheduler.tick_seconds":         c.Scheduler.TickSeconds,
		"scheduler.min_cooldown_seconds": c.Scheduler.MinCooldownSeconds,
		"scheduler.max_cooldown_seconds": c.Scheduler.MaxCooldownSeconds,
		"scheduler.min_viewers":          c.Scheduler.MinViewers,
	}); err != nil {
		return err
	}
	if c.Scheduler.MaxCooldownSeconds <= c.Scheduler.MinCooldownSeconds {
		return errors.New("scheduler.max_cooldown_seconds must be greater than scheduler.min_cooldown_seconds")
	}
	if c.Scheduler.ActiveMultiplier < 1 {
		return errors.New("scheduler.active_multiplier must be >= 1")
	}
	for _, hour := range c.Scheduler.PeakHours {
		if hour < 0 || hour > 23 {
			return fmt.Errorf("scheduler.peak_hours entry %d out of range", hour)
		}
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if err := ensurePositiveMap(map[string]int{
		"cleanup.interval_seconds":     c.Cleanup.IntervalSeconds,
		"cleanup.raid_timeout_seconds": c.Cleanup.RaidTimeoutSeconds,
		"cleanup.min_participants":     c.Cleanup.MinParticipants,
		"cleanup.retention_days":       c.Cleanup.RetentionDays,
	}); err != nil {
		return err
	}
	if c.Cleanup.MinInvestment < 0 {
		return errors.New("cleanup.min_investment must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
