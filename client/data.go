package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const pathMobileData = "/mobile/data/request"

// DataUnit is the bundle size unit.
type DataUnit string

const (
	DataUnitMB DataUnit = "MB"
	DataUnitGB DataUnit = "GB"
)

// DataValidity is how long a bundle lasts.
type DataValidity string

const (
	ValidityDay   DataValidity = "Day"
	ValidityWeek  DataValidity = "Week"
	ValidityMonth DataValidity = "Month"
)

// MobileDataService sends data bundles.
type MobileDataService struct {
	client *Client
}

// MobileDataRecipient is one bundle.
type MobileDataRecipient struct {
	PhoneNumber string            `json:"phoneNumber" validate:"required,e164"`
	Quantity    int               `json:"quantity" validate:"gt=0"`
	Unit        DataUnit          `json:"unit" validate:"oneof=MB GB"`
	Validity    DataValidity      `json:"validity" validate:"oneof=Day Week Month"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// MobileDataRequest sends bundles from a mobile data product.
type MobileDataRequest struct {
	ProductName    string                `json:"productName" validate:"required"`
	Recipients     []MobileDataRecipient `json:"recipients" validate:"min=1,dive"`
	IdempotencyKey string                `json:"-"`
}

type mobileDataBody struct {
	Username    string                `json:"username"`
	ProductName string                `json:"productName"`
	Recipients  []MobileDataRecipient `json:"recipients"`
}

// MobileDataEntry is the per number outcome.
type MobileDataEntry struct {
	PhoneNumber   string `json:"phoneNumber"`
	Provider      string `json:"provider"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Value         string `json:"value"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

// MobileDataResponse is the gateway reply.
type MobileDataResponse struct {
	Entries []MobileDataEntry `json:"entries"`
}

// Send requests the bundles in req.
func (s *MobileDataService) Send(ctx context.Context, req MobileDataRequest) (*MobileDataResponse, error) {
	if err := s.client.check(req); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	body := mobileDataBody{
		Username:    s.client.cfg.Username,
		ProductName: req.ProductName,
		Recipients:  req.Recipients,
	}

	var out MobileDataResponse
	err := s.client.do(ctx, call{
		method:         http.MethodPost,
		service:        ServiceMobileData,
		path:           pathMobileData,
		body:           body,
		idempotencyKey: key,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
