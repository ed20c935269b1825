package domain

import "errors"

// Authentication-class failures. Rejected before any persistence; the caller
// may retry after correcting the request.
var (
	ErrMissingTopic      = errors.New("missing_topic")
	ErrUnsupportedTopic  = errors.New("unsupported_topic")
	ErrMissingDeliveryID = errors.New("missing_delivery_id")
	ErrInvalidSignature  = errors.New("invalid_signature")
)

// ErrSecretMissing means the shared signing secret is not configured. This is
// an infrastructure failure, not an authenticity failure.
var ErrSecretMissing = errors.New("webhook_secret_missing")

// Business-data failures. Recorded on the delivery record as failed and
// reported to the caller as success, since redelivery cannot fix them.
var (
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrMissingOrderRef    = errors.New("missing_order_ref")
	ErrNoReviewLines      = errors.New("no_review_lines")
	ErrUnresolvedPackSize = errors.New("unresolved_pack_size")
	ErrMissingLineKey     = errors.New("missing_line_key")
	ErrInvalidDestination = errors.New("invalid_destination_url")
)

// IsAuthErr reports whether err belongs to the authentication class.
func IsAuthErr(err error) bool {
	switch {
	case errors.Is(err, ErrMissingTopic),
		errors.Is(err, ErrUnsupportedTopic),
		errors.Is(err, ErrMissingDeliveryID),
		errors.Is(err, ErrInvalidSignature):
		return true
	default:
		return false
	}
}

// IsBusinessErr reports whether err is a business-data failure that should
// terminate the delivery as failed rather than be retried.
func IsBusinessErr(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrMissingOrderRef),
		errors.Is(err, ErrNoReviewLines),
		errors.Is(err, ErrUnresolvedPackSize),
		errors.Is(err, ErrMissingLineKey),
		errors.Is(err, ErrInvalidDestination):
		return true
	default:
		return false
	}
}
