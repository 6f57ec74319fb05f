package events

import "github.com/google/uuid"

// Event kinds that change what a viewer may see. Anything else on the stream
// is ignored.
const (
	KindBanCreated     = "ban.created"
	KindBanRemoved     = "ban.removed"
	KindSubCreated     = "subscription.created"
	KindSubRemoved     = "subscription.removed"
	KindAdminChanged   = "group.admin_changed"
	KindBansDisabled   = "group.bans_disabled"
	KindBansEnabled    = "group.bans_enabled"
	KindAccountGone    = "account.gone"
	KindAccountRestore = "account.restored"
)

// streamEvent is the raw JSON structure on the application event stream.
type streamEvent struct {
	Kind string `json:"kind"`

	// UserID is the acting user.
	UserID uuid.UUID `json:"userId"`

	// TargetUserID is the other party of a ban, when present.
	TargetUserID uuid.UUID `json:"targetUserId,omitempty"`

	// Seq is the monotonic position on the stream.
	Seq int64 `json:"seq"`
}

// visibilityKinds are the event kinds that invalidate a cached visibility
// context.
var visibilityKinds = map[string]struct{}{
	KindBanCreated:     {},
	KindBanRemoved:     {},
	KindSubCreated:     {},
	KindSubRemoved:     {},
	KindAdminChanged:   {},
	KindBansDisabled:   {},
	KindBansEnabled:    {},
	KindAccountGone:    {},
	KindAccountRestore: {},
}
