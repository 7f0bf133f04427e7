package models

import "time"

// EventType enumerates the delivery and interaction outcomes recorded for a
// message. Events are immutable facts; aggregation happens downstream.
type EventType string

const (
	EventDelivered              EventType = "delivered"
	EventReceived               EventType = "received"
	EventClicked                EventType = "clicked"
	EventActionClick            EventType = "action_click"
	EventProcessingFailed       EventType = "processing_failed"
	EventDeliveryFailed         EventType = "delivery_failed"
	EventDeliveryFailedButRetry EventType = "delivery_failed_but_retry"
)

// EventSubtype qualifies a failure event.
type EventSubtype string

const (
	SubtypeNone                EventSubtype = ""
	SubtypeInvalidSubscription EventSubtype = "invalid_subscription"
)

// WebPushEvent records one delivery or interaction outcome for a message in a
// domain. EventTime is the time the outcome happened, not arrival time; stats
// bucketing relies on it so replays land in their true historical bucket.
type WebPushEvent struct {
	Domain    string       `json:"domain"`
	MessageID string       `json:"message_id"`
	EventTime time.Time    `json:"event_time"`
	Type      EventType    `json:"type"`
	Subtype   EventSubtype `json:"subtype,omitempty"`
}
