// Package stripe adapts the Stripe API to the payment provider contract used by the reconciler.
package stripe

//go:generate go run go.uber.org/mock/mockgen -source=./stripe.go -destination=./mocks/stripe_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"parking/config"
	"parking/infras/otel"
	"parking/shared/constant"
	"time"

	"github.com/rs/zerolog/log"
	stripeGo "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	ProviderName = "stripe"

	MetadataBookingID = "bookingId"

	StatusSucceeded             = "succeeded"
	StatusRequiresPaymentMethod = "requires_payment_method"
)

var (
	ErrMissingSecretKey = errors.New("stripe secret key is required when payments are enabled")
	ErrSignature        = errors.New("invalid webhook signature")
	ErrPayload          = errors.New("invalid webhook payload")
)

type IntentParams struct {
	BookingID    string
	Amount       int64
	Currency     string
	ReceiptEmail string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// Event is a provider notification about a payment intent.
type Event struct {
	ID           string
	Type         string
	CreatedAt    time.Time
	BookingID    string
	IntentID     string
	ClientSecret string
	Status       string
}

type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, params IntentParams) (Intent, error)
	// ParseEvent verifies the signature header when a webhook secret is configured. Without one
	// the payload is trusted as is.
	ParseEvent(payload []byte, signature string) (Event, error)
}

type providerImpl struct {
	intents       *paymentintent.Client
	webhookSecret string
	otel          otel.Otel
}

// New returns nil, nil when payments are disabled.
func New(cfg *config.Config, otel otel.Otel) (Provider, error) {
	if !cfg.Payments.Enabled {
		return nil, nil //nolint:nilnil
	}

	if cfg.Payments.Stripe.SecretKey == constant.Empty {
		return nil, ErrMissingSecretKey
	}

	return &providerImpl{
		intents: &paymentintent.Client{
			B:   stripeGo.GetBackend(stripeGo.APIBackend),
			Key: cfg.Payments.Stripe.SecretKey,
		},
		webhookSecret: cfg.Payments.Stripe.WebhookSecret,
		otel:          otel,
	}, nil
}

func (p *providerImpl) Name() string {
	return ProviderName
}

func (p *providerImpl) CreateIntent(ctx context.Context, req IntentParams) (res Intent, err error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".stripe.CreateIntent")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	params := intentParams(req)
	params.Context = ctx

	intent, err := p.intents.New(params)
	if err != nil {
		log.Error().Err(err).Str("bookingId", req.BookingID).Msg("failed to create payment intent")

		return res, fmt.Errorf("failed to create payment intent: %w", err)
	}

	res = Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}

	if res.Status == constant.Empty {
		res.Status = StatusRequiresPaymentMethod
	}

	return res, nil
}

// intentParams builds a fresh creation request. No idempotency key is set: every call opens a
// new intent, and stripe-go keys its own network retries per request.
func intentParams(req IntentParams) *stripeGo.PaymentIntentParams {
	params := &stripeGo.PaymentIntentParams{
		Amount:   stripeGo.Int64(req.Amount),
		Currency: stripeGo.String(req.Currency),
		AutomaticPaymentMethods: &stripeGo.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeGo.Bool(true),
		},
	}
	params.AddMetadata(MetadataBookingID, req.BookingID)

	if req.ReceiptEmail != constant.Empty {
		params.ReceiptEmail = stripeGo.String(req.ReceiptEmail)
	}

	return params
}

func (p *providerImpl) ParseEvent(payload []byte, signature string) (Event, error) {
	return ParseEvent(payload, signature, p.webhookSecret)
}

// ParseEvent decodes a webhook payload, checking its signature against secret unless secret is empty.
func ParseEvent(payload []byte, signature, secret string) (Event, error) {
	var (
		evt stripeGo.Event
		err error
	)

	if secret != constant.Empty {
		evt, err = webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return Event{}, fmt.Errorf("%w: %w", ErrSignature, err)
		}
	} else if err = json.Unmarshal(payload, &evt); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrPayload, err)
	}

	return toEvent(evt)
}

func toEvent(evt stripeGo.Event) (Event, error) {
	res := Event{
		ID:        evt.ID,
		Type:      string(evt.Type),
		CreatedAt: time.Unix(evt.Created, 0).UTC(),
	}

	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return res, nil
	}

	var object struct {
		ID           string            `json:"id"`
		ClientSecret string            `json:"client_secret"`
		Status       string            `json:"status"`
		Metadata     map[string]string `json:"metadata"`
	}

	if err := json.Unmarshal(evt.Data.Raw, &object); err != nil {
		return res, fmt.Errorf("%w: %w", ErrPayload, err)
	}

	res.BookingID = object.Metadata[MetadataBookingID]
	res.IntentID = object.ID
	res.ClientSecret = object.ClientSecret
	res.Status = object.Status

	if res.Status == constant.Empty {
		res.Status = res.Type
	}

	return res, nil
}
