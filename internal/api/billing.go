package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/devshare/devshare/internal/billing"
)

// BillingAPI provides the Stripe-backed JSON-RPC methods
type BillingAPI struct {
	svc *billing.Service
}

// NewBillingAPI creates a new billing API
func NewBillingAPI(svc *billing.Service) *BillingAPI {
	return &BillingAPI{svc: svc}
}

type paymentIntentParams struct {
	PriceID string `json:"priceId"`
}

// CreatePaymentIntent handles billing.create_payment_intent
func (a *BillingAPI) CreatePaymentIntent(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	actor, ok := CurrentIdentity(ctx)
	if !ok {
		return nil, NewError(ErrPermissionDenied, "sign in to start checkout")
	}

	var p paymentIntentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "malformed params")
	}

	secret, err := a.svc.CreatePaymentIntent(ctx.Request.Context(), actor.UID, p.PriceID)
	if err != nil {
		return nil, err
	}
	return gin.H{"clientSecret": secret}, nil
}

type priceInfoParams struct {
	PriceIDs []string `json:"priceIds"`
}

// PriceInfo handles billing.price_info
func (a *BillingAPI) PriceInfo(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p priceInfoParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, "malformed params")
	}

	prices, err := a.svc.PriceInfo(ctx.Request.Context(), p.PriceIDs)
	if err != nil {
		return nil, err
	}
	return gin.H{"prices": prices}, nil
}
