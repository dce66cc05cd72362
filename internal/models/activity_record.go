package models

import "time"

// EventType classifies one observed activity record. The values mirror the
// backend's event taxonomy and appear verbatim in the local log file.
type EventType string

const (
	EventKeyDown        EventType = "KEY_DOWN"
	EventKeyUp          EventType = "KEY_UP"
	EventSysKeyDown     EventType = "SYSKEY_DOWN"
	EventSysKeyUp       EventType = "SYSKEY_UP"
	EventMouseLeftDown  EventType = "MOUSE_LEFT_DOWN"
	EventMouseLeftUp    EventType = "MOUSE_LEFT_UP"
	EventMouseRightDown EventType = "MOUSE_RIGHT_DOWN"
	EventMouseRightUp   EventType = "MOUSE_RIGHT_UP"
	EventMouseMove      EventType = "MOUSE_MOVE"
	EventMouseWheel     EventType = "MOUSE_WHEEL"
	EventMouseOther     EventType = "MOUSE_OTHER"
	EventActiveApp      EventType = "ACTIVE_APP"
	EventSystem         EventType = "SYSTEM"
	EventIdleAnnotated  EventType = "IDLE_ANNOTATED"
)

// ActivityRecord is one observed event. Records are appended to the local
// activity log as they occur and removed only after a confirmed upload.
type ActivityRecord struct {
	Timestamp time.Time
	EventType EventType
	Details   string
}

// LogEntry is the wire representation of an ActivityRecord, matching the
// backend's activity endpoint. Timestamp keeps the log file's string form.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"eventType"`
	Details   string `json:"details"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}
