package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

const pathAirtimeSend = "/version1/airtime/send"

// AirtimeService tops up phone numbers.
type AirtimeService struct {
	client *Client
}

// AirtimeRecipient is one top-up.
type AirtimeRecipient struct {
	PhoneNumber  string   `json:"phoneNumber" validate:"required,e164"`
	CurrencyCode Currency `json:"currencyCode" validate:"required,currency"`
	Amount       float64  `json:"amount" validate:"gt=0"`
}

// AirtimeRequest sends airtime to every recipient in one call.
type AirtimeRequest struct {
	Recipients []AirtimeRecipient `validate:"min=1,dive"`
	// MaxNumRetry asks the gateway to retry failed top-ups.
	MaxNumRetry int `validate:"gte=0"`
	// IdempotencyKey deduplicates retried calls; a random key is used when empty.
	IdempotencyKey string
}

// AirtimeEntry is the per number outcome.
type AirtimeEntry struct {
	PhoneNumber  string `json:"phoneNumber"`
	Amount       string `json:"amount"`
	Discount     string `json:"discount"`
	Status       string `json:"status"`
	RequestID    string `json:"requestId"`
	ErrorMessage string `json:"errorMessage"`
}

// AirtimeResponse is the gateway reply.
type AirtimeResponse struct {
	ErrorMessage  string         `json:"errorMessage"`
	NumSent       int            `json:"numSent"`
	TotalAmount   string         `json:"totalAmount"`
	TotalDiscount string         `json:"totalDiscount"`
	Responses     []AirtimeEntry `json:"responses"`
}

// Send tops up every recipient.
func (s *AirtimeService) Send(ctx context.Context, req AirtimeRequest) (*AirtimeResponse, error) {
	if err := s.client.check(req); err != nil {
		return nil, err
	}

	recipients, err := json.Marshal(req.Recipients)
	if err != nil {
		return nil, fmt.Errorf("africastalking: marshal airtime recipients: %w", err)
	}
	form := url.Values{}
	form.Set("recipients", string(recipients))
	if req.MaxNumRetry > 0 {
		form.Set("maxNumRetry", strconv.Itoa(req.MaxNumRetry))
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	var out AirtimeResponse
	err = s.client.do(ctx, call{
		method:         http.MethodPost,
		service:        ServiceAPI,
		path:           pathAirtimeSend,
		form:           form,
		idempotencyKey: key,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
