package trades

import (
	"github.com/gin-gonic/gin"

	"github.com/numistry/cointrade-api/pkg/response"
)

// GinHandlers contains HTTP handlers for trade lifecycle endpoints. Caller
// identity and role are read from the context set by the auth middleware.
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func callerID(c *gin.Context) (string, bool) {
	userID := c.GetString("userID")
	if userID == "" {
		response.Unauthorized(c, "Missing caller identity")
		return "", false
	}
	return userID, true
}

type initiateTradeRequest struct {
	CoinID string `json:"coin_id" binding:"required"`
}

// InitiateTradeHandler handles POST requests to open a trade on a coin.
func (h *GinHandlers) InitiateTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		var req initiateTradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		trade, err := h.service.InitiateTrade(caller, req.CoinID)
		response.Handle(c, trade, err)
	}
}

// ListTradesHandler handles GET requests for the caller's trades.
// Query parameters: status, role (initiator|owner).
func (h *GinHandlers) ListTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		result, err := h.service.ListTrades(caller, c.Query("status"), c.Query("role"))
		response.Handle(c, result, err)
	}
}

// GetTradeDetailHandler handles GET requests for a single trade projection.
func (h *GinHandlers) GetTradeDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		detail, err := h.service.GetTradeDetail(caller, c.GetString("role"), c.Param("trade_id"))
		response.Handle(c, detail, err)
	}
}

type submitOfferRequest struct {
	OfferedCoinID *string `json:"offered_coin_id"`
	Message       string  `json:"message" binding:"max=1000"`
}

// SubmitOfferHandler handles POST requests to attach an offer to a trade.
func (h *GinHandlers) SubmitOfferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		var req submitOfferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		offer, err := h.service.SubmitOffer(caller, c.Param("trade_id"), req.OfferedCoinID, req.Message)
		response.Handle(c, offer, err)
	}
}

// AcceptOfferHandler handles POST requests by the coin owner to accept an
// offer.
func (h *GinHandlers) AcceptOfferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		err := h.service.AcceptOffer(caller, c.Param("trade_id"), c.Param("offer_id"))
		response.Handle(c, gin.H{"message": "offer accepted"}, err)
	}
}

// RejectOfferHandler handles POST requests by the coin owner to reject an
// offer.
func (h *GinHandlers) RejectOfferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		err := h.service.RejectOffer(caller, c.Param("trade_id"), c.Param("offer_id"))
		response.Handle(c, gin.H{"message": "offer rejected"}, err)
	}
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// SendMessageHandler handles POST requests to append a message to the trade
// conversation.
func (h *GinHandlers) SendMessageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		message, err := h.service.SendMessage(caller, c.Param("trade_id"), req.Content)
		response.Handle(c, message, err)
	}
}

type markShippedRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"max=64"`
}

// MarkShippedHandler handles POST requests to record the caller-side
// shipment.
func (h *GinHandlers) MarkShippedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		var req markShippedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.MarkShipped(caller, c.Param("trade_id"), req.TrackingNumber)
		response.Handle(c, gin.H{"message": "shipment recorded"}, err)
	}
}

// MarkReceivedHandler handles POST requests to confirm the caller-side
// receipt. The response reports whether the trade completed as a result.
func (h *GinHandlers) MarkReceivedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		completed, err := h.service.MarkReceived(caller, c.Param("trade_id"))
		response.Handle(c, gin.H{"completed": completed}, err)
	}
}

type fileReportRequest struct {
	Reason      string `json:"reason" binding:"required,max=256"`
	Description string `json:"description" binding:"max=2000"`
}

// FileReportHandler handles POST requests to report the other party.
func (h *GinHandlers) FileReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		var req fileReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		report, err := h.service.FileReport(caller, c.Param("trade_id"), req.Reason, req.Description)
		response.Handle(c, report, err)
	}
}

// CancelTradeHandler handles POST requests to cancel a trade.
func (h *GinHandlers) CancelTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		err := h.service.CancelTrade(caller, c.Param("trade_id"))
		response.Handle(c, gin.H{"message": "trade cancelled"}, err)
	}
}

// ListReportsHandler handles GET requests for a trade's reports. Routed
// behind the moderator role gate.
func (h *GinHandlers) ListReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := callerID(c); !ok {
			return
		}

		reports, err := h.service.ListReports(c.GetString("role"), c.Param("trade_id"))
		response.Handle(c, reports, err)
	}
}

type reviewReportRequest struct {
	ReviewStatus string `json:"review_status" binding:"required"`
	ReviewNotes  string `json:"review_notes" binding:"max=2000"`
}

// ReviewReportHandler handles PATCH requests to move a report through
// triage. Routed behind the moderator role gate.
func (h *GinHandlers) ReviewReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerID(c)
		if !ok {
			return
		}

		var req reviewReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		report, err := h.service.ReviewReport(caller, c.Param("report_id"),
			ReportStatus(req.ReviewStatus), req.ReviewNotes)
		response.Handle(c, report, err)
	}
}
