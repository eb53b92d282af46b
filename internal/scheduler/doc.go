// Package scheduler starts raids automatically. Each tick it draws against
// a probability that grows across the cooldown window, boosted during peak
// hours and busy chat, and forces a start once the maximum cooldown passes.
package scheduler
