// Package billing exposes the two Stripe-backed RPCs: creating a payment
// intent for an allow-listed price, and resolving display metadata for a set
// of allow-listed prices. Amounts always come from the Stripe Price objects,
// never from configuration.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	"github.com/devshare/devshare/pkg/config"
	"github.com/devshare/devshare/pkg/logging"
)

var (
	// ErrUnauthenticated is returned when no user id accompanies the call
	ErrUnauthenticated = errors.New("sign in to start checkout")
	// ErrInvalidArgument is returned for a missing or empty price id set
	ErrInvalidArgument = errors.New("price id is required")
	// ErrPriceNotAllowed is returned for a price id outside the allow-list
	ErrPriceNotAllowed = errors.New("price id not allowed")
	// ErrPriceInactive is returned when the Stripe price is inactive or has
	// no amount configured
	ErrPriceInactive = errors.New("invalid or inactive price configuration")
)

const priceCachePrefix = "devshare:price:"

// StripeAPI is the slice of the Stripe client the service uses. Tests inject
// a fake; production wraps client.API.
type StripeAPI interface {
	RetrievePrice(ctx context.Context, id string) (*stripe.Price, error)
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeClient struct {
	sc *client.API
}

func (c *stripeClient) RetrievePrice(ctx context.Context, id string) (*stripe.Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx
	return c.sc.Prices.Get(id, params)
}

func (c *stripeClient) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return c.sc.PaymentIntents.New(params)
}

// PriceDetail is the display metadata returned per allow-listed price
type PriceDetail struct {
	ID         string  `json:"id"`
	Currency   string  `json:"currency"`
	UnitAmount int64   `json:"unit_amount"`
	Type       string  `json:"type"`
	Interval   *string `json:"interval"`
	Nickname   *string `json:"nickname"`
}

// Service implements the billing RPCs
type Service struct {
	api      StripeAPI
	cache    *redis.Client
	cacheTTL time.Duration
	allowed  map[string]struct{}
	logger   *zap.Logger
}

// New creates a billing service on the production Stripe client. A nil redis
// client disables the price cache.
func New(cfg config.BillingConfig, cache *redis.Client) *Service {
	sc := &client.API{}
	sc.Init(cfg.StripeSecretKey, nil)
	return NewWithAPI(cfg, &stripeClient{sc: sc}, cache)
}

// NewWithAPI creates a billing service with an injected Stripe backend
func NewWithAPI(cfg config.BillingConfig, api StripeAPI, cache *redis.Client) *Service {
	allowed := make(map[string]struct{}, len(cfg.AllowedPriceIDs))
	for _, id := range cfg.AllowedPriceIDs {
		allowed[id] = struct{}{}
	}
	return &Service{
		api:      api,
		cache:    cache,
		cacheTTL: time.Duration(cfg.PriceCacheTTL) * time.Second,
		allowed:  allowed,
		logger:   logging.GetLogger().With(zap.String("service", "billing")),
	}
}

// CreatePaymentIntent resolves the price amount from Stripe and opens a
// payment intent for it, returning the client secret. The price id must be
// on the allow-list and the price active.
func (s *Service) CreatePaymentIntent(ctx context.Context, uid, priceID string) (string, error) {
	if uid == "" {
		return "", ErrUnauthenticated
	}
	if priceID == "" {
		return "", ErrInvalidArgument
	}
	if _, ok := s.allowed[priceID]; !ok {
		return "", fmt.Errorf("%w: %s", ErrPriceNotAllowed, priceID)
	}

	price, err := s.api.RetrievePrice(ctx, priceID)
	if err != nil {
		return "", fmt.Errorf("retrieving price %s: %w", priceID, err)
	}
	if !price.Active || price.UnitAmount == 0 || price.Currency == "" {
		return "", ErrPriceInactive
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(price.UnitAmount),
		Currency: stripe.String(string(price.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("uid", uid)
	params.AddMetadata("priceId", priceID)

	intent, err := s.api.CreatePaymentIntent(ctx, params)
	if err != nil {
		return "", fmt.Errorf("creating payment intent: %w", err)
	}

	s.logger.Info("payment intent created",
		zap.String("uid", uid),
		zap.String("price_id", priceID),
		zap.String("intent_id", intent.ID))
	return intent.ClientSecret, nil
}

// PriceInfo resolves display metadata for the given price ids. Every id is
// checked against the allow-list before any lookup. Results are cached in
// redis for the configured TTL.
func (s *Service) PriceInfo(ctx context.Context, priceIDs []string) ([]PriceDetail, error) {
	if len(priceIDs) == 0 {
		return nil, ErrInvalidArgument
	}
	for _, id := range priceIDs {
		if _, ok := s.allowed[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrPriceNotAllowed, id)
		}
	}

	out := make([]PriceDetail, 0, len(priceIDs))
	for _, id := range priceIDs {
		if detail, ok := s.cachedPrice(ctx, id); ok {
			out = append(out, detail)
			continue
		}

		price, err := s.api.RetrievePrice(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("retrieving price %s: %w", id, err)
		}

		detail := PriceDetail{
			ID:         price.ID,
			Currency:   string(price.Currency),
			UnitAmount: price.UnitAmount,
			Type:       string(price.Type),
		}
		if price.Recurring != nil && price.Recurring.Interval != "" {
			interval := string(price.Recurring.Interval)
			detail.Interval = &interval
		}
		if price.Nickname != "" {
			nickname := price.Nickname
			detail.Nickname = &nickname
		}

		s.storePrice(ctx, detail)
		out = append(out, detail)
	}
	return out, nil
}

func (s *Service) cachedPrice(ctx context.Context, id string) (PriceDetail, bool) {
	if s.cache == nil {
		return PriceDetail{}, false
	}
	raw, err := s.cache.Get(ctx, priceCachePrefix+id).Bytes()
	if err != nil {
		return PriceDetail{}, false
	}
	var detail PriceDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return PriceDetail{}, false
	}
	return detail, true
}

func (s *Service) storePrice(ctx context.Context, detail PriceDetail) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, priceCachePrefix+detail.ID, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("price cache write failed", zap.String("price_id", detail.ID), zap.Error(err))
	}
}
