package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/semaphore"
)

const (
	pathMessaging     = "/version1/messaging"
	pathMessagingBulk = "/version1/messaging/bulk"
)

// SMSService sends and fetches text messages.
type SMSService struct {
	client *Client
}

// SendSMSRequest is a single message to one or more recipients.
type SendSMSRequest struct {
	To      []string `json:"to" validate:"min=1,dive,e164"`
	Message string   `json:"message" validate:"required"`
	// From is a registered short code or alphanumeric sender id.
	From string `json:"from,omitempty"`
	// BulkSMSMode is sent when not nil; the gateway treats absence as true.
	BulkSMSMode *bool `json:"bulkSMSMode,omitempty"`
	Enqueue     bool  `json:"enqueue,omitempty"`
	// Keyword and LinkID apply to premium messages.
	Keyword              string `json:"keyword,omitempty"`
	LinkID               string `json:"linkId,omitempty"`
	RetryDurationInHours int    `json:"retryDurationInHours,omitempty" validate:"gte=0"`
}

// SMSRecipient is the per number outcome of a send.
type SMSRecipient struct {
	StatusCode int    `json:"statusCode"`
	Number     string `json:"number"`
	Status     string `json:"status"`
	Cost       string `json:"cost"`
	MessageID  string `json:"messageId"`
}

// Accepted reports whether the gateway accepted the message for this number.
func (r SMSRecipient) Accepted() bool {
	return r.StatusCode == 100 || r.StatusCode == 101 || r.StatusCode == 102
}

// SendSMSResponse is the gateway reply to a send.
type SendSMSResponse struct {
	SMSMessageData struct {
		Message    string         `json:"Message"`
		Recipients []SMSRecipient `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send delivers req.
func (s *SMSService) Send(ctx context.Context, req SendSMSRequest) (*SendSMSResponse, error) {
	if err := s.client.check(req); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("to", strings.Join(req.To, ","))
	form.Set("message", req.Message)
	if req.From != "" {
		form.Set("from", req.From)
	}
	if req.BulkSMSMode != nil {
		form.Set("bulkSMSMode", boolFlag(*req.BulkSMSMode))
	}
	if req.Enqueue {
		form.Set("enqueue", "1")
	}
	if req.Keyword != "" {
		form.Set("keyword", req.Keyword)
	}
	if req.LinkID != "" {
		form.Set("linkId", req.LinkID)
	}
	if req.RetryDurationInHours > 0 {
		form.Set("retryDurationInHours", strconv.Itoa(req.RetryDurationInHours))
	}

	var out SendSMSResponse
	if err := s.client.do(ctx, call{method: http.MethodPost, service: ServiceAPI, path: pathMessaging, form: form}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkSMSRequest uses the JSON bulk endpoint.
type BulkSMSRequest struct {
	PhoneNumbers []string `json:"phoneNumbers" validate:"min=1,dive,e164"`
	Message      string   `json:"message" validate:"required"`
	SenderID     string   `json:"senderId,omitempty"`
	Enqueue      bool     `json:"enqueue,omitempty"`
}

type bulkSMSBody struct {
	Username string `json:"username"`
	BulkSMSRequest
}

// SendBulk delivers req through the bulk endpoint.
func (s *SMSService) SendBulk(ctx context.Context, req BulkSMSRequest) (*SendSMSResponse, error) {
	if err := s.client.check(req); err != nil {
		return nil, err
	}

	body := bulkSMSBody{Username: s.client.cfg.Username, BulkSMSRequest: req}
	var out SendSMSResponse
	if err := s.client.do(ctx, call{method: http.MethodPost, service: ServiceAPI, path: pathMessagingBulk, body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InboxMessage is a message received on one of the account's short codes.
type InboxMessage struct {
	ID          int64  `json:"id"`
	LinkID      string `json:"linkId"`
	Text        string `json:"text"`
	To          string `json:"to"`
	From        string `json:"from"`
	Date        string `json:"date"`
	NetworkCode string `json:"networkCode,omitempty"`
}

// FetchMessagesResponse is a page of received messages.
type FetchMessagesResponse struct {
	SMSMessageData struct {
		Messages []InboxMessage `json:"Messages"`
	} `json:"SMSMessageData"`
}

// LastID returns the highest message id on the page, or lastReceivedID when
// the page is empty, ready for the next Fetch.
func (r *FetchMessagesResponse) LastID(lastReceivedID int64) int64 {
	last := lastReceivedID
	for _, m := range r.SMSMessageData.Messages {
		if m.ID > last {
			last = m.ID
		}
	}
	return last
}

// Fetch returns messages received after lastReceivedID. Pass 0 for the
// first page.
func (s *SMSService) Fetch(ctx context.Context, lastReceivedID int64) (*FetchMessagesResponse, error) {
	if lastReceivedID < 0 {
		return nil, fmt.Errorf("%w: lastReceivedId must not be negative", ErrInvalidRequest)
	}
	query := url.Values{}
	query.Set("lastReceivedId", strconv.FormatInt(lastReceivedID, 10))

	var out FetchMessagesResponse
	if err := s.client.do(ctx, call{method: http.MethodGet, service: ServiceAPI, path: pathMessaging, query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendBatch sends every request with at most concurrency in flight. The
// result slice matches reqs by index; failed entries are nil and their
// errors are joined into the returned error.
func (s *SMSService) SendBatch(ctx context.Context, reqs []SendSMSRequest, concurrency int) ([]*SendSMSResponse, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*SendSMSResponse, len(reqs))
	errs := make([]error, len(reqs))
	sem := semaphore.NewWeighted(int64(concurrency))

	for i := range reqs {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(reqs); j++ {
				errs[j] = fmt.Errorf("sms batch[%d]: %w", j, err)
			}
			break
		}
		go func(i int) {
			defer sem.Release(1)
			resp, err := s.Send(ctx, reqs[i])
			if err != nil {
				errs[i] = fmt.Errorf("sms batch[%d]: %w", i, err)
				return
			}
			results[i] = resp
		}(i)
	}

	// Wait for in-flight sends by taking the whole weight.
	_ = sem.Acquire(context.Background(), int64(concurrency))
	return results, errors.Join(errs...)
}

// ChunkRecipients splits numbers into requests of at most size recipients
// each, copying the other fields of template.
func ChunkRecipients(template SendSMSRequest, numbers []string, size int) []SendSMSRequest {
	if size < 1 {
		size = 1
	}
	var out []SendSMSRequest
	for start := 0; start < len(numbers); start += size {
		end := start + size
		if end > len(numbers) {
			end = len(numbers)
		}
		req := template
		req.To = append([]string(nil), numbers[start:end]...)
		out = append(out, req)
	}
	return out
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
