package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/realtime"
	"github.com/kendall-kelly/barpos-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOrderRequestRouter() *gin.Engine {
	router := setupTestRouter()
	group := router.Group("/order-requests", mockAuthMiddleware("sam", models.RoleWaiter))
	group.POST("", CreateOrderRequest)
	group.GET("", ListOrderRequests)
	group.GET("/:id", GetOrderRequest)
	group.PATCH("/:id", UpdateOrderRequest)
	group.PATCH("/:id/complete", CompleteOrderRequest)
	group.POST("/:id/accept", AcceptOrderRequest)
	group.DELETE("/:id", DeleteOrderRequest)
	group.GET("/:id/history", GetOrderRequestHistory)
	group.POST("/:id/items", AddOrderRequestItem)
	group.PATCH("/:id/items/:itemId", UpdateOrderRequestItem)
	group.DELETE("/:id/items/:itemId", DeleteOrderRequestItem)
	return router
}

func createOrderRequest(t *testing.T, env *testEnv, items ...*models.Product) *models.OrderRequest {
	t.Helper()
	lines := make([]services.LineItemInput, 0, len(items))
	for _, p := range items {
		lines = append(lines, services.LineItemInput{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price})
	}
	request, err := services.GetOrderRequestService().Create(services.WithActor(t.Context(), "sam"), services.CreateOrderRequestInput{
		TableID: env.table.ID,
		Items:   lines,
	})
	require.NoError(t, err)
	env.events.Reset()
	return request
}

func TestCreateOrderRequest(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    func(env *testEnv) map[string]interface{}
		expectedStatus int
		expectedError  string
		checkResponse  func(t *testing.T, env *testEnv, response map[string]interface{})
	}{
		{
			name: "Successfully create order request",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{
					"tableId":  env.table.ID,
					"clientId": env.customer.ID,
					"items":    []interface{}{line(env.burger, 1, "10.00"), line(env.soda, 2, "5.00")},
				}
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, env *testEnv, response map[string]interface{}) {
				assert.True(t, response["success"].(bool))
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "20", data["total"])
				assert.Equal(t, false, data["isCompleted"])
				assert.Len(t, data["items"], 2)

				assert.Len(t, env.events.Named(realtime.EventNewOrderNotification), 1)
				assert.Len(t, env.events.Named(realtime.EventOrderRequestUpdate), 1)
			},
		},
		{
			name: "Empty item list is allowed",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{"tableId": env.table.ID}
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, env *testEnv, response map[string]interface{}) {
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "0", data["total"])
				assert.Empty(t, data["items"])
			},
		},
		{
			name: "Fail with missing tableId",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{"items": []interface{}{line(env.burger, 1, "10.00")}}
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name: "Fail with zero quantity",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{
					"tableId": env.table.ID,
					"items":   []interface{}{line(env.burger, 0, "10.00")},
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name: "Fail with unit price below a cent",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{
					"tableId": env.table.ID,
					"items":   []interface{}{line(env.soda, 3, "0.333")},
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name: "Fail with unit price too large to store",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{
					"tableId": env.table.ID,
					"items":   []interface{}{line(env.soda, 1, "123456789.00")},
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name: "Fail with negative unit price",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{
					"tableId": env.table.ID,
					"items":   []interface{}{line(env.burger, 1, "-1.00")},
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name: "Fail with unknown table",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{"tableId": uuid.New()}
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "TABLE_NOT_FOUND",
		},
		{
			name: "Fail with unknown product",
			requestBody: func(env *testEnv) map[string]interface{} {
				return map[string]interface{}{
					"tableId": env.table.ID,
					"items":   []interface{}{map[string]interface{}{"productId": uuid.New(), "quantity": 1, "unitPrice": "1.00"}},
				}
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "PRODUCT_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			router := setupOrderRequestRouter()

			w := performRequest(router, http.MethodPost, "/order-requests", tt.requestBody(env))

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, w))
				assert.Empty(t, env.events.Events(), "failed requests must not notify")
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, env, decodeResponse(t, w))
			}
		})
	}
}

func TestListOrderRequests(t *testing.T) {
	env := setupTestEnv(t)
	router := setupOrderRequestRouter()

	open := createOrderRequest(t, env, env.burger)
	closed := createOrderRequest(t, env, env.soda)
	_, err := services.GetOrderRequestService().Complete(t.Context(), closed.ID)
	require.NoError(t, err)

	tests := []struct {
		name          string
		query         string
		expectedCount int
		expectedTotal float64
	}{
		{name: "all", query: "", expectedCount: 2, expectedTotal: 2},
		{name: "open only", query: "?isCompleted=false", expectedCount: 1, expectedTotal: 1},
		{name: "completed with numeric flag", query: "?isCompleted=1", expectedCount: 1, expectedTotal: 1},
		{name: "by table", query: "?tableId=" + env.table.ID.String(), expectedCount: 2, expectedTotal: 2},
		{name: "other table", query: "?tableId=" + uuid.NewString(), expectedCount: 0, expectedTotal: 0},
		{name: "second page", query: "?page=2&limit=1", expectedCount: 1, expectedTotal: 2},
		{name: "created before today", query: "?createdTo=2000-01-01", expectedCount: 0, expectedTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, "/order-requests"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			response := decodeResponse(t, w)
			data := response["data"].([]interface{})
			assert.Len(t, data, tt.expectedCount)

			pagination := response["pagination"].(map[string]interface{})
			assert.Equal(t, tt.expectedTotal, pagination["total"])
		})
	}

	t.Run("open request is listed with its id", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/order-requests?isCompleted=no", nil)
		data := decodeResponse(t, w)["data"].([]interface{})
		require.Len(t, data, 1)
		assert.Equal(t, open.ID.String(), data[0].(map[string]interface{})["id"])
	})

	t.Run("invalid boolean", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/order-requests?isCompleted=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_QUERY", errorCode(t, w))
	})
}

func TestGetOrderRequest(t *testing.T) {
	env := setupTestEnv(t)
	router := setupOrderRequestRouter()
	request := createOrderRequest(t, env, env.burger)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedError  string
	}{
		{name: "found", path: "/order-requests/" + request.ID.String(), expectedStatus: http.StatusOK},
		{name: "not found", path: "/order-requests/" + uuid.NewString(), expectedStatus: http.StatusNotFound, expectedError: "ORDER_REQUEST_NOT_FOUND"},
		{name: "malformed id", path: "/order-requests/42", expectedStatus: http.StatusBadRequest, expectedError: "INVALID_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, w))
			}
		})
	}
}

func TestAcceptOrderRequest(t *testing.T) {
	env := setupTestEnv(t)
	router := setupOrderRequestRouter()
	request := createOrderRequest(t, env, env.burger, env.soda)
	path := "/order-requests/" + request.ID.String() + "/accept"

	w := performRequest(router, http.MethodPost, path, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeResponse(t, w)["data"].(map[string]interface{})
	order := data["order"].(map[string]interface{})
	assert.Equal(t, "processing", order["status"])
	assert.Equal(t, "15", order["total"])
	assert.Equal(t, true, data["orderRequest"].(map[string]interface{})["isCompleted"])

	w = performRequest(router, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ORDER_REQUEST_COMPLETED", errorCode(t, w))

	var orders int64
	env.db.Model(&models.Order{}).Count(&orders)
	assert.Equal(t, int64(1), orders)
}

func TestOrderRequestItemEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	router := setupOrderRequestRouter()
	request := createOrderRequest(t, env, env.burger)
	base := "/order-requests/" + request.ID.String() + "/items"

	w := performRequest(router, http.MethodPost, base, line(env.soda, 2, "5.00"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "20", data["total"])

	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	sodaLine := items[1].(map[string]interface{})["id"].(string)

	w = performRequest(router, http.MethodPatch, base+"/"+sodaLine, map[string]interface{}{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "30", decodeResponse(t, w)["data"].(map[string]interface{})["total"])

	w = performRequest(router, http.MethodPatch, base+"/"+sodaLine, map[string]interface{}{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodDelete, base+"/"+sodaLine, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", decodeResponse(t, w)["data"].(map[string]interface{})["total"])

	w = performRequest(router, http.MethodDelete, base+"/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_REQUEST_ITEM_NOT_FOUND", errorCode(t, w))

	assert.Len(t, env.events.Named(realtime.EventOrderRequestUpdate), 3)
}

func TestUpdateOrderRequest_StaleVersion(t *testing.T) {
	env := setupTestEnv(t)
	router := setupOrderRequestRouter()
	request := createOrderRequest(t, env, env.burger)

	w := performRequest(router, http.MethodPatch, "/order-requests/"+request.ID.String(), map[string]interface{}{
		"items":   []interface{}{line(env.soda, 1, "5.00")},
		"version": request.Version + 5,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "VERSION_CONFLICT", errorCode(t, w))
}

func TestUpdateOrderRequest_ClearClient(t *testing.T) {
	env := setupTestEnv(t)
	router := setupOrderRequestRouter()
	request, err := services.GetOrderRequestService().Create(t.Context(), services.CreateOrderRequestInput{
		TableID:  env.table.ID,
		ClientID: &env.customer.ID,
	})
	require.NoError(t, err)
	path := "/order-requests/" + request.ID.String()

	w := performRequest(router, http.MethodPatch, path, map[string]interface{}{"clientId": env.customer.ID, "clearClient": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = performRequest(router, http.MethodPatch, path, map[string]interface{}{"clientId": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, env.customer.ID.String(), decodeResponse(t, w)["data"].(map[string]interface{})["clientId"])

	w = performRequest(router, http.MethodPatch, path, map[string]interface{}{"clearClient": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decodeResponse(t, w)["data"].(map[string]interface{})["clientId"])
}

func TestCompleteAndDeleteOrderRequest(t *testing.T) {
	env := setupTestEnv(t)
	router := setupOrderRequestRouter()
	request := createOrderRequest(t, env, env.burger)
	path := "/order-requests/" + request.ID.String()

	w := performRequest(router, http.MethodPatch, path+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeResponse(t, w)["data"].(map[string]interface{})["isCompleted"])

	w = performRequest(router, http.MethodPost, path+"/items", line(env.soda, 1, "5.00"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ORDER_REQUEST_COMPLETED", errorCode(t, w))

	env.events.Reset()
	w = performRequest(router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, env.events.Events())

	w = performRequest(router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderRequestHistory(t *testing.T) {
	env := setupTestEnv(t)
	router := setupOrderRequestRouter()
	request := createOrderRequest(t, env, env.burger)

	w := performRequest(router, http.MethodPatch, "/order-requests/"+request.ID.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodGet, "/order-requests/"+request.ID.String()+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	entries := decodeResponse(t, w)["data"].([]interface{})
	require.Len(t, entries, 2)
	latest := entries[0].(map[string]interface{})
	assert.Equal(t, services.AuditOrderRequestCompleted, latest["action"])
	assert.Equal(t, "sam", latest["actor"])
}
