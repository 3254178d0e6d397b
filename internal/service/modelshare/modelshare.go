// Package modelshare provides locally used types and their structure for share and room view models.
package modelshare

import "time"

// File is the service-level view of one downloadable shared file.
type File struct {
	Code      string
	FileName  string
	Payload   []byte
	CreatedAt time.Time
}

// Message is the service-level view of one room message.
type Message struct {
	Device string
	Text   string
	SentAt time.Time
}

// RoomView is a point-in-time snapshot of a room as seen by one participant.
type RoomView struct {
	Code         string
	Messages     []Message
	Participants int
	CreatedAt    time.Time
}
