package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pushflow/internal/gateway"
)

func failureResponse(code int, message string) *gateway.SendResponse {
	return &gateway.SendResponse{
		Responses: []gateway.DeliveryResult{
			{
				IsSuccess: false,
				Exception: &gateway.DeliveryException{
					MessagingErrorCode: code,
					Message:            message,
				},
			},
		},
	}
}

func TestClassify_CallFailure(t *testing.T) {
	result := Classify(nil, errors.New("connection refused"))

	assert.True(t, result.FailedProcessing)
	assert.False(t, result.DeliveredOK)
	assert.False(t, result.None())
	assert.Equal(t, "connection refused", result.ErrorMessage)
}

func TestClassify_CallFailureWinsOverResponse(t *testing.T) {
	// A transport error means the response cannot be trusted.
	resp := &gateway.SendResponse{
		Responses: []gateway.DeliveryResult{{IsSuccess: true}},
	}

	result := Classify(resp, errors.New("read timeout"))
	assert.True(t, result.FailedProcessing)
	assert.False(t, result.DeliveredOK)
}

func TestClassify_NoResponseBody(t *testing.T) {
	tests := []struct {
		name string
		resp *gateway.SendResponse
	}{
		{name: "nil response", resp: nil},
		{name: "empty responses", resp: &gateway.SendResponse{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(tt.resp, nil)
			assert.True(t, result.None())
		})
	}
}

func TestClassify_Delivered(t *testing.T) {
	resp := &gateway.SendResponse{
		Responses: []gateway.DeliveryResult{{IsSuccess: true}},
	}

	result := Classify(resp, nil)
	assert.True(t, result.DeliveredOK)
	assert.False(t, result.None())
}

func TestClassify_ErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected func(t *testing.T, r Result)
	}{
		{
			name: "429 is rate limited",
			code: 429,
			expected: func(t *testing.T, r Result) {
				assert.True(t, r.RateLimited)
				assert.False(t, r.InvalidSubscription)
			},
		},
		{
			name: "404 is invalid subscription",
			code: 404,
			expected: func(t *testing.T, r Result) {
				assert.True(t, r.InvalidSubscription)
			},
		},
		{
			name: "410 is invalid subscription",
			code: 410,
			expected: func(t *testing.T, r Result) {
				assert.True(t, r.InvalidSubscription)
			},
		},
		{
			name: "401 is invalid subscription",
			code: 401,
			expected: func(t *testing.T, r Result) {
				assert.True(t, r.InvalidSubscription)
			},
		},
		{
			name: "500 is unknown failure",
			code: 500,
			expected: func(t *testing.T, r Result) {
				assert.True(t, r.UnknownFailure)
				assert.False(t, r.RateLimited)
				assert.False(t, r.InvalidSubscription)
			},
		},
		{
			name: "0 is unknown failure",
			code: 0,
			expected: func(t *testing.T, r Result) {
				assert.True(t, r.UnknownFailure)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(failureResponse(tt.code, "provider message"), nil)
			tt.expected(t, result)
			assert.Equal(t, "provider message", result.ErrorMessage)
			assert.False(t, result.FailedProcessing)
			assert.False(t, result.DeliveredOK)
		})
	}
}

func TestClassify_FailureWithoutException(t *testing.T) {
	resp := &gateway.SendResponse{
		Responses: []gateway.DeliveryResult{{IsSuccess: false}},
	}

	result := Classify(resp, nil)
	assert.True(t, result.UnknownFailure)
	assert.Empty(t, result.ErrorMessage)
}
