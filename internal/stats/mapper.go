package stats

import (
	"sort"

	"pushflow/pkg/models"
)

type bucketKey struct {
	domain    string
	messageID string
	unixHour  int64
}

// MapEvents aggregates any collection of events into one MessageStats delta
// per distinct (domain, message_id, hour) group. Empty input yields an empty
// result; unrecognized event types are ignored, never rejected.
func MapEvents(events []models.WebPushEvent) []MessageStats {
	if len(events) == 0 {
		return nil
	}

	groups := make(map[bucketKey]*MessageStats)
	order := make([]bucketKey, 0)

	for _, e := range events {
		bucket := HourBucket(e.EventTime)
		key := bucketKey{domain: e.Domain, messageID: e.MessageID, unixHour: bucket.Unix()}

		group, ok := groups[key]
		if !ok {
			group = &MessageStats{
				Domain:    e.Domain,
				MessageID: e.MessageID,
				Date:      bucket,
			}
			groups[key] = group
			order = append(order, key)
		}

		apply(group, e)
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.domain != b.domain {
			return a.domain < b.domain
		}
		if a.messageID != b.messageID {
			return a.messageID < b.messageID
		}
		return a.unixHour < b.unixHour
	})

	result := make([]MessageStats, 0, len(order))
	for _, key := range order {
		group := groups[key]
		group.Sent = group.Delivered + group.NotDelivered
		result = append(result, *group)
	}
	return result
}

// MapEvent aggregates a single event. It is exactly the group MapEvents would
// produce for the singleton collection.
func MapEvent(e models.WebPushEvent) MessageStats {
	group := MessageStats{
		Domain:    e.Domain,
		MessageID: e.MessageID,
		Date:      HourBucket(e.EventTime),
	}
	apply(&group, e)
	group.Sent = group.Delivered + group.NotDelivered
	return group
}

func apply(group *MessageStats, e models.WebPushEvent) {
	switch e.Type {
	case models.EventDelivered:
		group.Delivered++
		// Successful deliveries are always billed.
		group.BillableSends++
	case models.EventDeliveryFailed:
		group.NotDelivered++
		// A delivery that failed because the subscription is invalid is
		// still billed by the provider. This policy lives here and only
		// here.
		if e.Subtype == models.SubtypeInvalidSubscription {
			group.BillableSends++
		}
	case models.EventProcessingFailed, models.EventDeliveryFailedButRetry:
		group.NotDelivered++
	case models.EventReceived:
		group.Received++
	case models.EventClicked:
		group.Click++
	case models.EventActionClick:
		group.ActionClick++
	}
}
