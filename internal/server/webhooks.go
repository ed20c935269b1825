package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/plately/plately/internal/webhook/domain"
	"go.uber.org/zap"
)

// HandleShopifyWebhook accepts one delivery attempt. The response carries no
// body in any branch: the caller only acts on the status code, and echoing
// payload details back to an unauthenticated endpoint leaks information.
//
// 200 covers processed, replayed, and business-failed deliveries alike; all
// three mean "do not redeliver". 401 rejects the attempt before anything is
// persisted. 500 asks the platform to redeliver.
func (s *Server) HandleShopifyWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	in := webhookdomain.InboundDelivery{
		Topic:      c.GetHeader("X-Shopify-Topic"),
		DeliveryID: c.GetHeader("X-Shopify-Webhook-Id"),
		Signature:  c.GetHeader("X-Shopify-Hmac-Sha256"),
		Payload:    payload,
	}

	if err := s.webhookSvc.IngestDelivery(c.Request.Context(), in); err != nil {
		if webhookdomain.IsAuthErr(err) {
			c.Status(http.StatusUnauthorized)
			return
		}
		s.log.Error("delivery ingestion failed",
			zap.String("delivery_id", in.DeliveryID),
			zap.Error(err),
		)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}
