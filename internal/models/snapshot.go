package models

import "time"

// Snapshot is everything the UI needs to render the agent at one instant.
type Snapshot struct {
	Authorized        bool      `json:"authorized"`
	Device            *Device   `json:"device,omitempty"`
	Outdoor           *Device   `json:"outdoor,omitempty"`
	Status            Status    `json:"status"`
	Badge             BadgeSpec `json:"badge"`
	Theme             ThemeSpec `json:"theme"`
	WindowHint        bool      `json:"window_hint"`
	WaitingForNetwork bool      `json:"waiting_for_network"`
	UpdatedAt         time.Time `json:"updated_at"`
}
