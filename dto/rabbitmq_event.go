package dto

import "github.com/customeros/mailtriage/internal/enum"

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	EventType  string          `json:"eventType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

// TriageCompleted is published after a triage round finishes.
type TriageCompleted struct {
	ReportPath string         `json:"reportPath"`
	ReportURL  string         `json:"reportUrl,omitempty"`
	Success    bool           `json:"success"`
	Classified int            `json:"classified"`
	Marked     int            `json:"marked"`
	Failed     int            `json:"failed"`
	ByStatus   map[string]int `json:"byStatus"`
}
