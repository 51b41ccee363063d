package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barpos-api/config"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/realtime"
	"github.com/kendall-kelly/barpos-api/services"
	"github.com/kendall-kelly/barpos-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUserID = "2f1c9a52-62a4-4bc4-9d7c-6c3c1c1c0a11"

type testEnv struct {
	db       *gorm.DB
	events   *realtime.Recorder
	audit    *services.MockAuditLogger
	s3       *services.MockS3Service
	table    *models.Table
	burger   *models.Product
	soda     *models.Product
	customer *models.Customer
}

// setupTestEnv wires every service singleton onto a fresh in-memory database
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	env := &testEnv{
		db:     db,
		events: realtime.NewRecorder(),
		audit:  services.NewMockAuditLogger(),
		s3:     services.NewMockS3Service(),
	}

	notifier := realtime.NewNotifier(env.events)
	orders := services.InitOrderService(db, services.InitReceiptService(env.s3), env.audit)
	services.InitOrderRequestService(db, notifier, orders, env.audit)
	services.InitTableService(db, notifier)
	services.InitProductService(db)
	services.InitSongRequestService(db, notifier)
	_, err := services.InitAuthService(db, &config.Config{
		JWTSecret:     "controller-test-secret-with-enough-length",
		JWTIssuer:     "barpos-api",
		JWTAudience:   "barpos-clients",
		JWTExpiration: time.Hour,
	})
	require.NoError(t, err)

	env.table = testutil.CreateTable(t, db, 1)
	env.burger = testutil.CreateProduct(t, db, "Burger", "10.00", 10)
	env.soda = testutil.CreateProduct(t, db, "Soda", "5.00", 10)
	env.customer = testutil.CreateCustomer(t, db, env.table, "Ana")
	return env
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware sets up the context exactly as the real EnsureValidToken middleware does
func mockAuthMiddleware(username, role string) gin.HandlerFunc {
	return testutil.MockAuthMiddleware(testUserID, username, role)
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewBuffer(raw)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := decodeResponse(t, w)
	errorData, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "expected an error body, got %s", w.Body.String())
	return errorData["code"].(string)
}

func line(p *models.Product, quantity int, unitPrice string) map[string]interface{} {
	return map[string]interface{}{
		"productId": p.ID,
		"quantity":  quantity,
		"unitPrice": unitPrice,
	}
}
