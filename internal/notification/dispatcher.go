package notification

import (
	"fmt"

	"github.com/plately/plately/internal/config"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Dispatcher is the best-effort side channel fired after a delivery has been
// fully processed. Implementations must never block the pipeline and must
// swallow their own failures.
type Dispatcher interface {
	OrderProcessed(orderRef, contactEmail string, platesCreated, platesTotal int)
}

type Params struct {
	fx.In

	Log *zap.Logger
	Cfg config.Config
}

var Module = fx.Module("notification",
	fx.Provide(NewDispatcher),
)

func NewDispatcher(p Params) Dispatcher {
	log := p.Log.Named("notification")
	if p.Cfg.NotifyAPIKey == "" || p.Cfg.NotifyTo == "" {
		log.Info("notification channel disabled: no api key or recipient configured")
		return &noopDispatcher{log: log}
	}
	return &sendgridDispatcher{
		log:     log,
		apiKey:  p.Cfg.NotifyAPIKey,
		from:    p.Cfg.NotifyFrom,
		to:      p.Cfg.NotifyTo,
		baseURL: p.Cfg.PublicBaseURL,
	}
}

type sendgridDispatcher struct {
	log     *zap.Logger
	apiKey  string
	from    string
	to      string
	baseURL string
}

// OrderProcessed dispatches the email on its own goroutine. The outcome is
// logged and discarded; notification failure never alters the delivery
// ledger or the caller's response.
func (d *sendgridDispatcher) OrderProcessed(orderRef, contactEmail string, platesCreated, platesTotal int) {
	go func() {
		subject := fmt.Sprintf("Order %s processed: %d plate(s) ready for production", orderRef, platesTotal)
		body := fmt.Sprintf(
			"Order %s\nCustomer: %s\nPlates created in this pass: %d\nPlates total: %d\n\n%s/admin/orders/%s",
			orderRef, contactEmail, platesCreated, platesTotal, d.baseURL, orderRef,
		)

		message := mail.NewSingleEmail(
			mail.NewEmail("Plately", d.from),
			subject,
			mail.NewEmail("", d.to),
			body,
			fmt.Sprintf("<pre>%s</pre>", body),
		)

		response, err := sendgrid.NewSendClient(d.apiKey).Send(message)
		if err != nil {
			d.log.Warn("order notification failed", zap.String("order_ref", orderRef), zap.Error(err))
			return
		}
		if response.StatusCode >= 400 {
			d.log.Warn("order notification rejected",
				zap.String("order_ref", orderRef),
				zap.Int("status", response.StatusCode),
			)
			return
		}
		d.log.Debug("order notification sent", zap.String("order_ref", orderRef))
	}()
}

type noopDispatcher struct {
	log *zap.Logger
}

func (d *noopDispatcher) OrderProcessed(orderRef, contactEmail string, platesCreated, platesTotal int) {
	d.log.Debug("order notification skipped",
		zap.String("order_ref", orderRef),
		zap.Int("plates_created", platesCreated),
	)
}
