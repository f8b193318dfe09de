package domain

type RoomID string

// DefaultRoom is the single implicit room every participant lives in.
// The ID is threaded through the hub and playback interfaces so that
// real partitioning can land later without breaking them.
const DefaultRoom RoomID = "default"
