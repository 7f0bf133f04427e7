package stats

import "time"

// MessageStats is one hour-bucketed aggregate row for a message in a domain,
// or a delta applied to one. Date is always truncated to the top of the hour.
//
// The sent column is never tallied independently: it is derived as
// delivered + not_delivered at mapping time, so the invariant holds after
// every write by construction.
type MessageStats struct {
	Domain    string    `json:"domain"`
	MessageID string    `json:"message_id"`
	Date      time.Time `json:"date"`

	Sent          int64 `json:"sent"`
	Delivered     int64 `json:"delivered"`
	NotDelivered  int64 `json:"not_delivered"`
	Received      int64 `json:"received"`
	Click         int64 `json:"click"`
	ActionClick   int64 `json:"action_click"`
	BillableSends int64 `json:"billable_sends"`
}

// HourBucket truncates a timestamp to the aggregation grain.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
