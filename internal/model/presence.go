package model

// PresenceEvent is a platform presence change with per-surface detail.
// Surface values use the platform's raw vocabulary ("online", "idle", "dnd",
// "offline", or empty when the surface is not reported).
type PresenceEvent struct {
	UserID   string
	Username string
	Status   string
	Desktop  string
	Mobile   string
	Web      string
}

// MobileOnly reports whether the user is reachable from the mobile surface
// while both desktop and web are dark.
func (e PresenceEvent) MobileOnly() bool {
	return surfaceActive(e.Mobile) && !surfaceActive(e.Desktop) && !surfaceActive(e.Web)
}

func surfaceActive(s string) bool {
	switch s {
	case "online", "idle", "dnd":
		return true
	}
	return false
}
