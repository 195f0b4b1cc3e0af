package client

import (
	"context"
	"net/http"
)

const (
	pathMobileCheckout = "/mobile/checkout/request"
	pathWalletBalance  = "/query/wallet/balance"
)

// PaymentsService initiates mobile money checkouts.
type PaymentsService struct {
	client *Client
}

// MobileCheckoutRequest prompts a subscriber to pay into a payment product.
type MobileCheckoutRequest struct {
	ProductName     string            `json:"productName" validate:"required"`
	ProviderChannel string            `json:"providerChannel,omitempty"`
	PhoneNumber     string            `json:"phoneNumber" validate:"required,e164"`
	CurrencyCode    Currency          `json:"currencyCode" validate:"required,currency"`
	Amount          float64           `json:"amount" validate:"gt=0"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type mobileCheckoutBody struct {
	Username string `json:"username"`
	MobileCheckoutRequest
}

// MobileCheckoutResponse is the gateway reply; the final outcome arrives on
// the payment notification callback.
type MobileCheckoutResponse struct {
	Description     string `json:"description"`
	Status          string `json:"status"`
	TransactionID   string `json:"transactionId"`
	ProviderChannel string `json:"providerChannel"`
}

// MobileCheckout starts a checkout.
func (s *PaymentsService) MobileCheckout(ctx context.Context, req MobileCheckoutRequest) (*MobileCheckoutResponse, error) {
	if err := s.client.check(req); err != nil {
		return nil, err
	}

	body := mobileCheckoutBody{Username: s.client.cfg.Username, MobileCheckoutRequest: req}
	var out MobileCheckoutResponse
	if err := s.client.do(ctx, call{method: http.MethodPost, service: ServicePayments, path: pathMobileCheckout, body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletBalanceResponse is the payments wallet balance.
type WalletBalanceResponse struct {
	Status       string `json:"status"`
	Balance      string `json:"balance"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// WalletBalance reads the payments wallet balance.
func (s *PaymentsService) WalletBalance(ctx context.Context) (*WalletBalanceResponse, error) {
	var out WalletBalanceResponse
	if err := s.client.do(ctx, call{method: http.MethodGet, service: ServicePayments, path: pathWalletBalance}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
