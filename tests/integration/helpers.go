package integration

import (
	"time"

	"pushflow/internal/contacts"
	"pushflow/internal/logger"
	"pushflow/internal/stats"
	"pushflow/pkg/models"
)

const containerStartupTimeout = 60

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestContact(domain, endpoint string, fields map[string]string) contacts.Contact {
	return contacts.Contact{
		Domain:   domain,
		Endpoint: endpoint,
		P256DH:   "p256dh-" + endpoint,
		Auth:     "auth-" + endpoint,
		Fields:   fields,
	}
}

func createTestDelta(domain, messageID string, at time.Time, delivered, notDelivered int64) stats.MessageStats {
	return stats.MessageStats{
		Domain:        domain,
		MessageID:     messageID,
		Date:          at,
		Sent:          delivered + notDelivered,
		Delivered:     delivered,
		NotDelivered:  notDelivered,
		BillableSends: delivered,
	}
}

func createTestEvent(domain, messageID string, eventType models.EventType, subtype models.EventSubtype, at time.Time) models.WebPushEvent {
	return models.WebPushEvent{
		Domain:    domain,
		MessageID: messageID,
		EventTime: at,
		Type:      eventType,
		Subtype:   subtype,
	}
}
