// Package messaging defines interfaces for real-time communication.
package messaging

// Broadcaster manages SSE client connections per playground session and
// fans lifecycle events out to them.
type Broadcaster interface {
	AddClient(sessionID string) (chan string, error)
	RemoveClient(ch chan string, sessionID string)
	SessionConnectionCount(sessionID string) int
	Publish(event PlaygroundEvent)
}

// Reloader notifies live-reload clients that the site was rebuilt.
type Reloader interface {
	Broadcast(msg ReloadMessage)
}
