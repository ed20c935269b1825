package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/plately/plately/internal/webhook/domain"
)

// destinationProperty is the exact line-item property carrying the review
// destination. Loose matches on these keywords are accepted as fallback.
const destinationProperty = "google_business_url"

var destinationKeywords = []string{"review", "google"}

// Group is one reviewable line of the order: the validated-later destination,
// the total plate units (quantity x pack size), and the stable line key the
// source supplied for it.
type Group struct {
	Destination string
	Units       int
	LineKey     string
}

// OrderEvent is the business content of one orders/paid payload.
type OrderEvent struct {
	OrderRef        string
	ContactEmail    string
	FinancialStatus string
	Groups          []Group
}

type orderPayload struct {
	OrderNumber     any        `json:"order_number"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	ContactEmail    string     `json:"contact_email"`
	FinancialStatus string     `json:"financial_status"`
	LineItems       []lineItem `json:"line_items"`
}

type lineItem struct {
	ID                any            `json:"id"`
	AdminGraphqlAPIID string         `json:"admin_graphql_api_id"`
	Title             string         `json:"title"`
	VariantTitle      string         `json:"variant_title"`
	Quantity          int            `json:"quantity"`
	CurrentQuantity   int            `json:"current_quantity"`
	Properties        []lineProperty `json:"properties"`
}

type lineProperty struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ParseOrder extracts the ordered review groups from a raw orders/paid
// payload. Lines without a review destination are irrelevant and skipped; a
// relevant line with an unresolved pack size or no stable line key fails the
// whole event.
func ParseOrder(payload []byte) (*OrderEvent, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var order orderPayload
	if err := decoder.Decode(&order); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	orderRef := coerceString(order.OrderNumber)
	if orderRef == "" {
		orderRef = strings.TrimPrefix(strings.TrimSpace(order.Name), "#")
	}
	if orderRef == "" {
		return nil, domain.ErrMissingOrderRef
	}

	contact := strings.TrimSpace(order.Email)
	if contact == "" {
		contact = strings.TrimSpace(order.ContactEmail)
	}

	groups := make([]Group, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		destination := findDestination(item.Properties)
		if destination == "" {
			continue
		}

		packSize, ok := ResolvePackSize(item.VariantTitle + " " + item.Title)
		if !ok {
			return nil, domain.ErrUnresolvedPackSize
		}

		lineKey := coerceString(item.ID)
		if lineKey == "" {
			lineKey = strings.TrimSpace(item.AdminGraphqlAPIID)
		}
		// A relevant line without a stable identifier cannot be generated
		// idempotently; a positional or random fallback would duplicate
		// plates across redeliveries.
		if lineKey == "" {
			return nil, domain.ErrMissingLineKey
		}

		quantity := item.Quantity
		if quantity <= 0 {
			quantity = item.CurrentQuantity
		}
		if quantity <= 0 {
			quantity = 1
		}

		groups = append(groups, Group{
			Destination: destination,
			Units:       quantity * packSize,
			LineKey:     lineKey,
		})
	}

	if len(groups) == 0 {
		return nil, domain.ErrNoReviewLines
	}

	return &OrderEvent{
		OrderRef:        orderRef,
		ContactEmail:    contact,
		FinancialStatus: strings.TrimSpace(order.FinancialStatus),
		Groups:          groups,
	}, nil
}

func findDestination(properties []lineProperty) string {
	for _, prop := range properties {
		if strings.EqualFold(strings.TrimSpace(prop.Name), destinationProperty) {
			if value := coerceString(prop.Value); value != "" {
				return value
			}
		}
	}
	for _, prop := range properties {
		name := strings.ToLower(strings.TrimSpace(prop.Name))
		for _, keyword := range destinationKeywords {
			if strings.Contains(name, keyword) {
				if value := coerceString(prop.Value); value != "" {
					return value
				}
			}
		}
	}
	return ""
}

func coerceString(value any) string {
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case json.Number:
		return cast.String()
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}
