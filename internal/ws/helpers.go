package ws

import "github.com/google/uuid"

// newConnID labels a lobby connection for log correlation. Connection
// IDs are never persisted.
func newConnID() string {
	return uuid.NewString()
}
