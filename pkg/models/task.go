package models

import "time"

// PushTask is one unit of pending work: a single recipient's web-push delivery.
// It lives only on the queue and is consumed at-least-once, so handlers must
// tolerate duplicates.
type PushTask struct {
	CorrelationID string    `json:"correlation_id"`
	Domain        string    `json:"domain"`
	MessageID     string    `json:"message_id"`
	CreatedAt     time.Time `json:"created_at"`

	Subscription Subscription `json:"subscription"`

	Title    string       `json:"title"`
	Body     string       `json:"body"`
	Link     string       `json:"link,omitempty"`
	ImageURL string       `json:"image_url,omitempty"`
	Actions  []PushAction `json:"actions,omitempty"`

	// Callback endpoints the gateway embeds into the payload so the browser
	// can report received/clicked interactions back.
	ReceivedEventEndpoint string `json:"received_event_endpoint,omitempty"`
	ClickedEventEndpoint  string `json:"clicked_event_endpoint,omitempty"`
}

// Subscription identifies one browser push endpoint with its encryption keys.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256DH   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type PushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}
