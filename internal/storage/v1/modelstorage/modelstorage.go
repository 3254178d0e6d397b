// Package modelstorage provides locally used types and their structure for storage objects.
package modelstorage

// FileRecord is the JSON shape of one shared file kept under a "file:" key.
type FileRecord struct {
	Code      string `json:"code"`
	FileName  string `json:"fileName"`
	Payload   []byte `json:"payload"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Message is one room entry with its sender device label.
type Message struct {
	Device string `json:"device"`
	Text   string `json:"text"`
	SentAt int64  `json:"sentAt"`
}

// RoomRecord is the JSON shape of one room kept under a "room:" key. The whole
// record is rewritten on every append, so concurrent writers race and the last
// write wins.
type RoomRecord struct {
	Code         string           `json:"code"`
	Messages     []Message        `json:"messages"`
	Participants map[string]int64 `json:"participants"`
	CreatedAt    int64            `json:"createdAt"`
}

// JournalEntry is one line of the infile storage journal.
type JournalEntry struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// RecordPSQLEntry maps one row of the records table.
type RecordPSQLEntry struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// RemoteDocument is the wire shape of the remote document store API.
type RemoteDocument struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
