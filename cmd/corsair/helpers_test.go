package main

import "testing"

func TestDisplayStatus(t *testing.T) {
	cases := map[string]string{
		"completed":      "Completed",
		"auto_completed": "Auto Completed",
		"canceled":       "Canceled",
		"failed":         "Failed",
	}
	for input, want := range cases {
		if got := displayStatus(input); got != want {
			t.Errorf("displayStatus(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(0); got != "-" {
		t.Errorf("formatSeconds(0) = %q", got)
	}
	if got := formatSeconds(90); got != "1m30s" {
		t.Errorf("formatSeconds(90) = %q", got)
	}
}

func TestFormatMultiplier(t *testing.T) {
	if got := formatMultiplier(1.8); got != "x1.8" {
		t.Errorf("formatMultiplier(1.8) = %q", got)
	}
	if got := formatMultiplier(0); got != "-" {
		t.Errorf("formatMultiplier(0) = %q", got)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(0.35); got != "35%" {
		t.Errorf("formatPercent(0.35) = %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp(""); got != "-" {
		t.Errorf("empty timestamp = %q", got)
	}
	if got := formatTimestamp("not-a-time"); got != "not-a-time" {
		t.Errorf("unparseable timestamp = %q", got)
	}
	if got := formatTimestamp("2026-08-28T12:00:00Z"); got == "-" || got == "" {
		t.Errorf("valid timestamp = %q", got)
	}
}
