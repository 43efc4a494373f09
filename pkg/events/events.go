// Package events defines the structure for events that are sent to Kafka.
package events

import (
	"strconv"
	"time"
)

// AuditEvent represents one lifecycle transition of an archived document.
type AuditEvent struct {
	ActorID    uint      `json:"actor_id"`
	Action     string    `json:"action"`
	DocumentID *uint     `json:"document_id,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Key returns the partition key so that events of one document stay ordered.
func (e AuditEvent) Key() string {
	if e.DocumentID == nil {
		return ""
	}
	return "doc-" + strconv.FormatUint(uint64(*e.DocumentID), 10)
}
