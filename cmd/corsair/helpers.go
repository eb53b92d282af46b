package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayStatus turns a machine status like "auto_completed" into a
// human-friendly label.
func displayStatus(status string) string {
	return titleCaser.String(strings.ReplaceAll(status, "_", " "))
}

func formatSeconds(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func formatTimestamp(value string) string {
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}

func formatMultiplier(value float64) string {
	if value <= 0 {
		return "-"
	}
	return fmt.Sprintf("x%.1f", value)
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.0f%%", value*100)
}
