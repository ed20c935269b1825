package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plately/plately/internal/authz"
	platedomain "github.com/plately/plately/internal/plate/domain"
	webhookdomain "github.com/plately/plately/internal/webhook/domain"
)

// OperatorRequired derives a capability from the bearer token and rejects the
// request unless it grants operations access. The capability is consumed
// right here in the decision; it is never stashed on the request context.
func (s *Server) OperatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		capability := authz.FromToken(bearerToken(c), s.cfg.AdminAPIToken)
		if !authz.CanViewOperations(capability) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type listDeliveriesResponse struct {
	Deliveries []webhookdomain.DeliveryRecord `json:"deliveries"`
}

func (s *Server) ListDeliveries(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	switch status {
	case "", webhookdomain.StatusReceived, webhookdomain.StatusProcessed, webhookdomain.StatusFailed:
	default:
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		limit = parsed
	}

	deliveries, err := s.deliveries.List(c.Request.Context(), s.db, status, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, listDeliveriesResponse{Deliveries: deliveries})
}

type deliveryResponse struct {
	DeliveryID    string     `json:"delivery_id"`
	Topic         string     `json:"topic"`
	Status        string     `json:"status"`
	OrderRef      string     `json:"order_ref"`
	Error         string     `json:"error"`
	PlatesCreated int        `json:"plates_created"`
	Payload       string     `json:"payload"`
	ReceivedAt    time.Time  `json:"received_at"`
	ProcessedAt   *time.Time `json:"processed_at"`
}

// GetDelivery exposes one delivery record including its raw payload, so a
// failed delivery can be inspected and corrected. The payload is returned as
// a string because failed deliveries may carry bodies that are not JSON.
func (s *Server) GetDelivery(c *gin.Context) {
	deliveryID := strings.TrimSpace(c.Param("id"))
	if deliveryID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	rec, err := s.deliveries.Find(c.Request.Context(), s.db, deliveryID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rec == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, deliveryResponse{
		DeliveryID:    rec.DeliveryID,
		Topic:         rec.Topic,
		Status:        rec.Status,
		OrderRef:      rec.OrderRef,
		Error:         rec.Error,
		PlatesCreated: rec.PlatesCreated,
		Payload:       string(rec.Payload),
		ReceivedAt:    rec.ReceivedAt,
		ProcessedAt:   rec.ProcessedAt,
	})
}

type orderResponse struct {
	OrderRef        string              `json:"order_ref"`
	ContactEmail    string              `json:"contact_email"`
	FinancialStatus string              `json:"financial_status"`
	Activated       bool                `json:"activated"`
	Plates          []platedomain.Plate `json:"plates"`
}

func (s *Server) GetOrder(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order, err := s.orders.FindByRef(c.Request.Context(), s.db, ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if order == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	plates, err := s.plates.ListByOrder(c.Request.Context(), s.db, order.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse{
		OrderRef:        order.OrderRef,
		ContactEmail:    order.ContactEmail,
		FinancialStatus: order.FinancialStatus,
		Activated:       order.Activated,
		Plates:          plates,
	})
}
