// Package chat defines the boundary to the live chat platform: announcing
// raid events to the room, reading the audience size, and tracking message
// activity for the scheduler.
package chat
