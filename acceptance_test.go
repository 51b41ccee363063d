package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/realtime"
	"github.com/kendall-kelly/barpos-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServerStartup verifies the fully wired router can be built
func TestServerStartup(t *testing.T) {
	app := newTestApp(t)
	assert.NotNil(t, app.router, "Router should be initialized")
}

// TestHealthEndpointResponseTime tests that the endpoint responds quickly
func TestHealthEndpointResponseTime(t *testing.T) {
	app := newTestApp(t)

	start := time.Now()
	w := app.do(t, http.MethodGet, "/api/v1/health", "", nil)
	duration := time.Since(start)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Less(t, duration, 100*time.Millisecond, "Health endpoint should respond in less than 100ms")
}

type envelope struct {
	Event   string          `json:"event"`
	TableID string          `json:"tableId"`
	Data    json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// TestOrderLifecycleAcceptance drives a request through acceptance over HTTP while a
// WebSocket client watching the table receives the notifications
func TestOrderLifecycleAcceptance(t *testing.T) {
	app := newTestApp(t)
	app.createStaff(t, "sam", "s3cret!", models.RoleWaiter)
	token := app.login(t, "sam", "s3cret!")

	table := testutil.CreateTable(t, app.db, 12)
	otherTable := testutil.CreateTable(t, app.db, 13)
	burger := testutil.CreateProduct(t, app.db, "Burger", "10.00", 10)
	soda := testutil.CreateProduct(t, app.db, "Soda", "5.00", 10)

	srv := httptest.NewServer(app.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?tableId=" + table.ID.String() + "&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return app.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	// Events for another table never reach this subscriber
	status, _ := call(t, srv, http.MethodPatch, "/api/v1/tables/"+otherTable.ID.String()+"/occupation?isOccupied=true", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, srv, http.MethodPost, "/api/v1/order-requests", token, map[string]interface{}{
		"tableId": table.ID,
		"items": []map[string]interface{}{
			{"productId": burger.ID, "quantity": 1, "unitPrice": "10.00"},
			{"productId": soda.ID, "quantity": 2, "unitPrice": "5.00"},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body["error"]))

	var request models.OrderRequest
	require.NoError(t, json.Unmarshal(body["data"], &request))
	assert.Equal(t, "20.00", request.Total.StringFixed(2))

	event := readEvent(t, conn)
	require.Equal(t, realtime.EventNewOrderNotification, event.Event)
	var notification struct {
		OrderRequestID string `json:"orderRequestId"`
		OrderInfo      struct {
			Total      decimal.Decimal `json:"total"`
			ItemsCount int             `json:"itemsCount"`
		} `json:"orderInfo"`
	}
	require.NoError(t, json.Unmarshal(event.Data, &notification))
	assert.Equal(t, request.ID.String(), notification.OrderRequestID)
	assert.Equal(t, "20.00", notification.OrderInfo.Total.StringFixed(2))
	assert.Equal(t, 2, notification.OrderInfo.ItemsCount)

	event = readEvent(t, conn)
	require.Equal(t, realtime.EventOrderRequestUpdate, event.Event)
	var open realtime.OrderRequestUpdate
	require.NoError(t, json.Unmarshal(event.Data, &open))
	assert.Len(t, open.OrderRequests, 1)

	acceptPath := "/api/v1/order-requests/" + request.ID.String() + "/accept"
	status, body = call(t, srv, http.MethodPost, acceptPath, token, nil)
	require.Equal(t, http.StatusCreated, status, string(body["error"]))

	var accepted struct {
		OrderRequest models.OrderRequest `json:"orderRequest"`
		Order        models.Order        `json:"order"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &accepted))
	assert.True(t, accepted.OrderRequest.IsCompleted)
	assert.Equal(t, models.OrderStatusProcessing, accepted.Order.Status)
	assert.Equal(t, "20.00", accepted.Order.Total.StringFixed(2))
	assert.Len(t, accepted.Order.Items, 2)

	event = readEvent(t, conn)
	require.Equal(t, realtime.EventOrderRequestUpdate, event.Event)
	require.NoError(t, json.Unmarshal(event.Data, &open))
	assert.Empty(t, open.OrderRequests)

	status, body = call(t, srv, http.MethodPost, acceptPath, token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body["error"]), "ORDER_REQUEST_COMPLETED")

	status, body = call(t, srv, http.MethodGet, "/api/v1/tables/"+table.ID.String()+"/detail", token, nil)
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		ActiveOrders         []json.RawMessage `json:"activeOrders"`
		PendingOrderRequests []json.RawMessage `json:"pendingOrderRequests"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &detail))
	assert.Len(t, detail.ActiveOrders, 1)
	assert.Empty(t, detail.PendingOrderRequests)

	status, _ = call(t, srv, http.MethodPatch, "/api/v1/tables/"+table.ID.String()+"/occupation?isOccupied=yes", token, nil)
	require.Equal(t, http.StatusOK, status)
	event = readEvent(t, conn)
	assert.Equal(t, realtime.EventTableStatusUpdate, event.Event)
	assert.Equal(t, table.ID.String(), event.TableID)
}
