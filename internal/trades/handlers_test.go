package trades

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numistry/cointrade-api/internal/auth"
	"github.com/numistry/cointrade-api/internal/users"
	"github.com/numistry/cointrade-api/pkg/middleware"
	"github.com/numistry/cointrade-api/pkg/response"
)

const testSecret = "handlers-test-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service, _ := newTestService(t)
	handlers := NewGinHandlers(service)

	router := gin.New()
	tradeGroup := router.Group("/api/v1/trades")
	tradeGroup.Use(middleware.JWTAuth(testSecret))
	{
		tradeGroup.POST("", handlers.InitiateTradeHandler())
		tradeGroup.GET("", handlers.ListTradesHandler())
		tradeGroup.GET("/:trade_id", handlers.GetTradeDetailHandler())
		tradeGroup.POST("/:trade_id/offers", handlers.SubmitOfferHandler())
		tradeGroup.POST("/:trade_id/offers/:offer_id/accept", handlers.AcceptOfferHandler())
		tradeGroup.POST("/:trade_id/offers/:offer_id/reject", handlers.RejectOfferHandler())
		tradeGroup.POST("/:trade_id/messages", handlers.SendMessageHandler())
		tradeGroup.POST("/:trade_id/shipping/shipped", handlers.MarkShippedHandler())
		tradeGroup.POST("/:trade_id/shipping/received", handlers.MarkReceivedHandler())
		tradeGroup.POST("/:trade_id/reports", handlers.FileReportHandler())
		tradeGroup.POST("/:trade_id/cancel", handlers.CancelTradeHandler())
	}

	moderation := router.Group("/api/v1/moderation")
	moderation.Use(middleware.JWTAuth(testSecret), middleware.RequireRole(users.RoleModerator))
	{
		moderation.GET("/trades/:trade_id/reports", handlers.ListReportsHandler())
		moderation.PATCH("/reports/:report_id", handlers.ReviewReportHandler())
	}

	return router, service
}

func mintToken(t *testing.T, userID, role string) string {
	t.Helper()

	token, err := auth.NewService(testSecret, nil).GenerateToken(&users.User{
		UserID:   userID,
		Username: "user-" + userID,
		Role:     role,
	})
	require.NoError(t, err)
	return token.Token
}

func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestInitiateTradeHandler(t *testing.T) {
	router, _ := newTestRouter(t)
	token := mintToken(t, initiatorID, users.RoleUser)

	w := doRequest(t, router, http.MethodPost, "/api/v1/trades", token,
		gin.H{"coin_id": "COIN_subject"})
	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestInitiateTradeHandler_MissingCoinID(t *testing.T) {
	router, _ := newTestRouter(t)
	token := mintToken(t, initiatorID, users.RoleUser)

	w := doRequest(t, router, http.MethodPost, "/api/v1/trades", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, response.ErrCodeBadRequest, resp.Error.Code)
}

func TestTradeRoutes_RequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/trades", "",
		gin.H{"coin_id": "COIN_subject"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/trades", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTradeRoutes_RejectForgedToken(t *testing.T) {
	router, _ := newTestRouter(t)

	forged, err := auth.NewService("some-other-secret", nil).GenerateToken(&users.User{
		UserID: initiatorID,
		Role:   users.RoleUser,
	})
	require.NoError(t, err)

	w := doRequest(t, router, http.MethodGet, "/api/v1/trades", forged.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetTradeDetailHandler_StatusMapping(t *testing.T) {
	router, service := newTestRouter(t)
	trade, err := service.InitiateTrade(initiatorID, "COIN_subject")
	require.NoError(t, err)

	// Party sees the trade.
	w := doRequest(t, router, http.MethodGet, "/api/v1/trades/"+trade.TradeID,
		mintToken(t, ownerID, users.RoleUser), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Bystander is forbidden.
	w = doRequest(t, router, http.MethodGet, "/api/v1/trades/"+trade.TradeID,
		mintToken(t, strangerID, users.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrCodeForbidden, decodeResponse(t, w).Error.Code)

	// Unknown trade is a 404.
	w = doRequest(t, router, http.MethodGet, "/api/v1/trades/TRD_missing",
		mintToken(t, initiatorID, users.RoleUser), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
}

func TestAcceptOfferHandler_InvalidStateMapping(t *testing.T) {
	router, service := newTestRouter(t)

	trade, err := service.InitiateTrade(initiatorID, "COIN_subject")
	require.NoError(t, err)
	offer, err := service.SubmitOffer(initiatorID, trade.TradeID, nil, "deal?")
	require.NoError(t, err)
	require.NoError(t, service.AcceptOffer(ownerID, trade.TradeID, offer.OfferID))

	// A second accept hits the already-decided offer.
	w := doRequest(t, router, http.MethodPost,
		"/api/v1/trades/"+trade.TradeID+"/offers/"+offer.OfferID+"/accept",
		mintToken(t, ownerID, users.RoleUser), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrCodeInvalidState, decodeResponse(t, w).Error.Code)
}

func TestAcceptOfferHandler_NonOwnerForbidden(t *testing.T) {
	router, service := newTestRouter(t)

	trade, err := service.InitiateTrade(initiatorID, "COIN_subject")
	require.NoError(t, err)
	offer, err := service.SubmitOffer(initiatorID, trade.TradeID, nil, "deal?")
	require.NoError(t, err)

	w := doRequest(t, router, http.MethodPost,
		"/api/v1/trades/"+trade.TradeID+"/offers/"+offer.OfferID+"/accept",
		mintToken(t, initiatorID, users.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSendMessageHandler_Validation(t *testing.T) {
	router, service := newTestRouter(t)

	trade, err := service.InitiateTrade(initiatorID, "COIN_subject")
	require.NoError(t, err)
	token := mintToken(t, initiatorID, users.RoleUser)

	w := doRequest(t, router, http.MethodPost,
		"/api/v1/trades/"+trade.TradeID+"/messages", token,
		gin.H{"content": "still interested?"})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Missing content fails binding before the service is reached.
	w = doRequest(t, router, http.MethodPost,
		"/api/v1/trades/"+trade.TradeID+"/messages", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkReceivedHandler_ReportsCompletion(t *testing.T) {
	router, service := newTestRouter(t)
	trade := acceptedTrade(t, service)

	w := doRequest(t, router, http.MethodPost,
		"/api/v1/trades/"+trade.TradeID+"/shipping/received",
		mintToken(t, initiatorID, users.RoleUser), nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, data["completed"])

	w = doRequest(t, router, http.MethodPost,
		"/api/v1/trades/"+trade.TradeID+"/shipping/received",
		mintToken(t, ownerID, users.RoleUser), nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	resp = decodeResponse(t, w)
	data, ok = resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["completed"])
}

func TestModerationRoutes_RoleGate(t *testing.T) {
	router, service := newTestRouter(t)

	trade, err := service.InitiateTrade(initiatorID, "COIN_subject")
	require.NoError(t, err)
	report, err := service.FileReport(initiatorID, trade.TradeID, "no-show", "")
	require.NoError(t, err)

	reportsPath := "/api/v1/moderation/trades/" + trade.TradeID + "/reports"

	// Ordinary users are stopped at the middleware.
	w := doRequest(t, router, http.MethodGet, reportsPath,
		mintToken(t, initiatorID, users.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodGet, reportsPath,
		mintToken(t, "USR_mod", users.RoleModerator), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPatch,
		"/api/v1/moderation/reports/"+report.ReportID,
		mintToken(t, "USR_mod", users.RoleModerator),
		gin.H{"review_status": "resolved", "review_notes": "warned the user"})
	assert.Equal(t, http.StatusOK, w.Code)

	// An unknown review status is rejected by the service.
	w = doRequest(t, router, http.MethodPatch,
		"/api/v1/moderation/reports/"+report.ReportID,
		mintToken(t, "USR_mod", users.RoleModerator),
		gin.H{"review_status": "escalated"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
