package service

// Broadcaster pushes pipeline progress events to a user's connected clients
// (avoids an import cycle with the ws transport).
type Broadcaster interface {
	BroadcastToUser(userID string, msgType string, payload interface{})
}
