package client

import (
	"context"
	"net/http"
)

const pathUser = "/version1/user"

// ApplicationService reads account level data.
type ApplicationService struct {
	client *Client
}

// ApplicationData is the account summary.
type ApplicationData struct {
	UserData struct {
		Balance string `json:"balance"`
	} `json:"UserData"`
}

// Balance returns the account balance, e.g. "KES 1785.50".
func (d *ApplicationData) Balance() string {
	return d.UserData.Balance
}

// Data fetches the account summary.
func (s *ApplicationService) Data(ctx context.Context) (*ApplicationData, error) {
	var out ApplicationData
	if err := s.client.do(ctx, call{method: http.MethodGet, service: ServiceAPI, path: pathUser}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
