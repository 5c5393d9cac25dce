package types

import (
	"encoding/json"
	"time"
)

// UnknownDeviceID is stored when a submission carries no device id.
const UnknownDeviceID = "unknown"

type Reading struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"deviceId"`
	Temperature float64   `json:"temperature"`
	Timestamp   time.Time `json:"timestamp"`
}

// Submission is an untrusted reading as received from a client.
// Temperature is kept raw so that only a JSON number is accepted.
type Submission struct {
	DeviceID    string          `json:"deviceId"`
	Temperature json.RawMessage `json:"temperature"`
	APIKey      string          `json:"apiKey"`
}

// DayWindow is the closed interval [Start, End] covering one calendar day.
type DayWindow struct {
	Date  string
	Start time.Time
	End   time.Time
}

// DecodeSubmission parses a JSON submission body. Unknown fields, including
// any client-side timestamp, are ignored.
func DecodeSubmission(data []byte) (Submission, error) {
	var sub Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return Submission{}, InvalidInput("invalid request body")
	}
	return sub, nil
}
