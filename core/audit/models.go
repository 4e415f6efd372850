package audit

import (
	"time"

	"github.com/shulehq/shule/core/access"
)

// Action kinds beyond the resource actions: auth events and denied attempts.
const (
	ActionLogin        = "login"
	ActionLogout       = "logout"
	ActionAccessDenied = "access_denied"
)

// Entry is an immutable record of one logical operation. Entries are only
// ever appended; there is no update or delete path, in code or in the
// repository contract.
type Entry struct {
	ID         string                 `json:"id"`
	ActorID    string                 `json:"actor_id"`
	ActorRole  access.Role            `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id,omitempty"`
	Scope      access.Scope           `json:"scope"`
	DistrictID string                 `json:"district_id,omitempty"`
	SchoolID   string                 `json:"school_id,omitempty"`
	PodID      string                 `json:"pod_id,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
	CreatedAt  time.Time              `json:"created_at"` // UTC
}

type Filter struct {
	ActorID    string    `query:"actor_id"`
	Action     string    `query:"action"`
	EntityType string    `query:"entity_type"`
	From       time.Time `query:"from"`
	To         time.Time `query:"to"`
	Limit      int       `query:"limit"`
}
