package featureflags

// Flags consulted by the server at startup.
const (
	// SuspensionSweeper runs the background job that reinstates members
	// whose suspension end date has passed.
	SuspensionSweeper = "suspension_sweeper"
	// RealtimeNotifications publishes user events to Redis and serves /api/ws.
	RealtimeNotifications = "realtime_notifications"
)
