package gateway

// Wire types for the external push gateway. Field names are part of the
// gateway's contract and must not change.

type SendRequest struct {
	Subscriptions []SubscriptionPayload `json:"subscriptions"`
	Title         string                `json:"title"`
	Body          string                `json:"body"`
	OnClickLink   string                `json:"onClickLink,omitempty"`
	ImageURL      string                `json:"imageUrl,omitempty"`
}

type SubscriptionPayload struct {
	Endpoint string             `json:"endpoint"`
	P256DH   string             `json:"p256dh"`
	Auth     string             `json:"auth"`
	Extra    SubscriptionExtras `json:"extra"`
}

// SubscriptionExtras carries the interaction-callback endpoints the gateway
// embeds into the push payload.
type SubscriptionExtras struct {
	ClickedEventEndpoint  string `json:"clickedEventEndpoint,omitempty"`
	ReceivedEventEndpoint string `json:"receivedEventEndpoint,omitempty"`
}

type SendResponse struct {
	Responses []DeliveryResult `json:"responses"`
}

type DeliveryResult struct {
	IsSuccess    bool                `json:"isSuccess"`
	Subscription SubscriptionPayload `json:"subscription"`
	Exception    *DeliveryException  `json:"exception,omitempty"`
}

type DeliveryException struct {
	MessagingErrorCode int    `json:"messagingErrorCode"`
	Message            string `json:"message"`
}
