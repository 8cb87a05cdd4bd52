package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/notification"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig(server.URL)
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 100
	return NewClient(cfg)
}

func TestClientSendSuccess(t *testing.T) {
	var got sendRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(sendResponse{DispatchID: "disp-001", Status: "queued"})
	})

	result, err := client.Send(context.Background(), "+911234567890", notification.Message{
		Subject: "Attendance Alert",
		Body:    "absent today",
	})
	require.NoError(t, err)
	assert.Equal(t, "disp-001", result.DispatchID)
	assert.Equal(t, "+911234567890", got.To)
	assert.Equal(t, "Attendance Alert", got.Subject)
}

func TestClientSendRejectedNotRetried(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"invalid destination"}`, http.StatusBadRequest)
	})

	_, err := client.Send(context.Background(), "bad", notification.Message{Body: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrGatewayRejected))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "rejections must not be retried")
}

func TestClientSendRetriesServerErrors(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "upstream down", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(sendResponse{DispatchID: "disp-002", Status: "queued"})
	})

	result, err := client.Send(context.Background(), "+911234567890", notification.Message{Body: "x"})
	require.NoError(t, err)
	assert.Equal(t, "disp-002", result.DispatchID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientSendExhaustsRetries(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	})

	_, err := client.Send(context.Background(), "+911234567890", notification.Message{Body: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrGatewayUnavailable))
}

func TestClientSendAuthHeader(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(sendResponse{DispatchID: "disp-003"})
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig(server.URL)
	cfg.APIKey = "secret-key"
	client := NewClient(cfg)

	_, err := client.Send(context.Background(), "+911234567890", notification.Message{Body: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", auth)
}

func TestConsoleGatewaySend(t *testing.T) {
	g := NewConsoleGateway(nil)

	first, err := g.Send(context.Background(), "+911234567890", notification.Message{Body: "x"})
	require.NoError(t, err)
	second, err := g.Send(context.Background(), "+911234567890", notification.Message{Body: "x"})
	require.NoError(t, err)

	assert.NotEmpty(t, first.DispatchID)
	assert.NotEqual(t, first.DispatchID, second.DispatchID)
}
