package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportSubmittedMessage announces a newly stored report. It carries only
// the ID; consumers load the report from the database.
type ReportSubmittedMessage struct {
	ID        string    `json:"id"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportSubmittedMessage(id, category string) *ReportSubmittedMessage {
	return &ReportSubmittedMessage{
		ID:        id,
		Category:  category,
		Timestamp: time.Now(),
	}
}

func (m *ReportSubmittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportSubmittedMessageFromJSON(data []byte) (*ReportSubmittedMessage, error) {
	var msg ReportSubmittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("message without report id")
	}
	return &msg, nil
}
