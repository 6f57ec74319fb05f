package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimedPostID is a post identifier paired with the ordering timestamp it was
// selected under. Selection queries return these so the two-stream merge can
// interleave by time without refetching posts.
type TimedPostID struct {
	ID uuid.UUID
	At time.Time
}
