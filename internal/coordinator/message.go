package coordinator

import "time"

// MessageType names a broadcast message.
type MessageType string

const (
	// MessageSyncRequested asks the leader to sync soon. Followers send it
	// after a local write.
	MessageSyncRequested MessageType = "sync-requested"
	// MessageSyncComplete is sent by the leader after every successful sync.
	MessageSyncComplete MessageType = "sync-complete"
)

// Message is one broadcast on the profile channel.
type Message struct {
	Type       MessageType `json:"type"`
	Sender     string      `json:"sender"`
	ChangedIDs []string    `json:"changedIds,omitempty"`
	SentAt     time.Time   `json:"sentAt"`
}
