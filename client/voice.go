package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	pathCall        = "/call"
	pathQueueStatus = "/queueStatus"
	pathMediaUpload = "/mediaUpload"
)

// Call entry statuses.
const (
	CallStatusQueued                  = "Queued"
	CallStatusInvalidPhoneNumber      = "InvalidPhoneNumber"
	CallStatusDestinationNotSupported = "DestinationNotSupported"
	CallStatusInsufficientCredit      = "InsufficientCredit"
)

// VoiceService places calls and manages queues and media.
type VoiceService struct {
	client *Client
}

// CallRequest places an outbound call from one of the account's numbers.
type CallRequest struct {
	From            string   `validate:"required"`
	To              []string `validate:"min=1,dive,required"`
	ClientRequestID string
}

// CallEntry is the per destination outcome.
type CallEntry struct {
	PhoneNumber string `json:"phoneNumber"`
	Status      string `json:"status"`
	SessionID   string `json:"sessionId"`
}

// CallResponse is the gateway reply to a call request.
type CallResponse struct {
	Entries      []CallEntry `json:"entries"`
	ErrorMessage string      `json:"errorMessage"`
}

// Call places the call described by req.
func (s *VoiceService) Call(ctx context.Context, req CallRequest) (*CallResponse, error) {
	if err := s.client.check(req); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("from", req.From)
	form.Set("to", strings.Join(req.To, ","))
	if req.ClientRequestID != "" {
		form.Set("clientRequestId", req.ClientRequestID)
	}

	var out CallResponse
	if err := s.client.do(ctx, call{method: http.MethodPost, service: ServiceVoice, path: pathCall, form: form}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueueEntry is the queue state of one number.
type QueueEntry struct {
	PhoneNumber string `json:"phoneNumber"`
	QueueName   string `json:"queueName"`
	NumCalls    int    `json:"numCalls"`
}

// QueueStatusResponse lists the queued calls per number.
type QueueStatusResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"errorMessage"`
	Entries      []QueueEntry `json:"entries"`
}

// QueueStatus reports how many callers wait on each number.
func (s *VoiceService) QueueStatus(ctx context.Context, phoneNumbers ...string) (*QueueStatusResponse, error) {
	if len(phoneNumbers) == 0 {
		return nil, fmt.Errorf("%w: at least one phone number is required", ErrInvalidRequest)
	}
	form := url.Values{}
	form.Set("phoneNumbers", strings.Join(phoneNumbers, ","))

	var out QueueStatusResponse
	if err := s.client.do(ctx, call{method: http.MethodPost, service: ServiceVoice, path: pathQueueStatus, form: form}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadMediaResponse is the reply to a media upload. The gateway answers
// either with JSON or with a plain sentence, carried in Status.
type UploadMediaResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

// UploadMedia asks the gateway to cache the audio file at mediaURL for
// phoneNumber's calls.
func (s *VoiceService) UploadMedia(ctx context.Context, mediaURL, phoneNumber string) (*UploadMediaResponse, error) {
	if strings.TrimSpace(mediaURL) == "" || strings.TrimSpace(phoneNumber) == "" {
		return nil, fmt.Errorf("%w: media url and phone number are required", ErrInvalidRequest)
	}
	form := url.Values{}
	form.Set("url", mediaURL)
	form.Set("phoneNumber", phoneNumber)

	var raw []byte
	if err := s.client.do(ctx, call{method: http.MethodPost, service: ServiceVoice, path: pathMediaUpload, form: form}, &raw); err != nil {
		return nil, err
	}

	var out UploadMediaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		out = UploadMediaResponse{Status: strings.TrimSpace(string(raw))}
	}
	return &out, nil
}
