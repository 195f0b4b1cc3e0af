package client

import (
	"net/url"
	"strconv"
	"strings"
)

// DeliveryReport is posted to the delivery report callback once a message
// reaches a final state.
type DeliveryReport struct {
	ID            string `json:"id" validate:"required"`
	Status        string `json:"status" validate:"required"`
	PhoneNumber   string `json:"phoneNumber" validate:"required"`
	NetworkCode   string `json:"networkCode"`
	FailureReason string `json:"failureReason,omitempty"`
	RetryCount    int    `json:"retryCount"`
}

// Delivered reports whether the handset received the message.
func (r DeliveryReport) Delivered() bool {
	return strings.EqualFold(r.Status, "Success")
}

// DeliveryReportFromValues decodes a form encoded delivery report. A
// malformed retryCount is treated as zero.
func DeliveryReportFromValues(v url.Values) DeliveryReport {
	retries, _ := strconv.Atoi(strings.TrimSpace(v.Get("retryCount")))
	return DeliveryReport{
		ID:            v.Get("id"),
		Status:        v.Get("status"),
		PhoneNumber:   v.Get("phoneNumber"),
		NetworkCode:   v.Get("networkCode"),
		FailureReason: v.Get("failureReason"),
		RetryCount:    retries,
	}
}

// IncomingMessage is posted when a subscriber texts one of the account's
// short codes.
type IncomingMessage struct {
	ID          string `json:"id" validate:"required"`
	Date        string `json:"date"`
	From        string `json:"from" validate:"required"`
	To          string `json:"to" validate:"required"`
	Text        string `json:"text"`
	LinkID      string `json:"linkId,omitempty"`
	NetworkCode string `json:"networkCode"`
}

// IncomingMessageFromValues decodes a form encoded incoming message.
func IncomingMessageFromValues(v url.Values) IncomingMessage {
	return IncomingMessage{
		ID:          v.Get("id"),
		Date:        v.Get("date"),
		From:        v.Get("from"),
		To:          v.Get("to"),
		Text:        v.Get("text"),
		LinkID:      v.Get("linkId"),
		NetworkCode: v.Get("networkCode"),
	}
}
