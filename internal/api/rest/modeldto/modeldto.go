// Package modeldto provides locally used types and their structure for data transfer objects.
package modeldto

type (
	RequestFile struct {
		FileName   string `json:"file_name"`
		Payload    []byte `json:"payload"`
		TTLSeconds int64  `json:"ttl_seconds,omitempty"`
	}

	ResponseCode struct {
		Code string `json:"code"`
	}

	ResponseFile struct {
		FileName  string `json:"file_name"`
		Payload   []byte `json:"payload"`
		CreatedAt int64  `json:"created_at"`
	}

	RequestMessage struct {
		Text string `json:"text"`
	}

	ResponseMessage struct {
		Device string `json:"device"`
		Text   string `json:"text"`
		SentAt int64  `json:"sent_at"`
	}

	ResponseRoom struct {
		Code         string            `json:"code"`
		Messages     []ResponseMessage `json:"messages"`
		Participants int               `json:"participants"`
		CreatedAt    int64             `json:"created_at"`
	}

	ResponseStats struct {
		Files int `json:"files"`
		Rooms int `json:"rooms"`
	}
)
