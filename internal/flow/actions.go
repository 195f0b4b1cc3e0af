package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/ussd"
)

// Caller places outbound voice calls.
type Caller interface {
	Call(ctx context.Context, req client.CallRequest) (*client.CallResponse, error)
}

// SMSSender sends a single message.
type SMSSender interface {
	Send(ctx context.Context, req client.SendSMSRequest) (*client.SendSMSResponse, error)
}

// CallbackAction calls the dialler back from virtualNumber.
func CallbackAction(caller Caller, virtualNumber string) ActionFunc {
	return func(ctx context.Context, req ussd.Request, _ map[string]string) error {
		if caller == nil || virtualNumber == "" {
			return errors.New("flow: callback action is not configured")
		}
		resp, err := caller.Call(ctx, client.CallRequest{
			From:            virtualNumber,
			To:              []string{req.PhoneNumber},
			ClientRequestID: req.SessionID,
		})
		if err != nil {
			return fmt.Errorf("flow: place callback: %w", err)
		}
		if resp.ErrorMessage != "" && resp.ErrorMessage != "None" {
			return fmt.Errorf("flow: place callback: %s", resp.ErrorMessage)
		}
		return nil
	}
}

// ConfirmationAction texts template to the dialler. The template accepts
// the same placeholders as menu messages.
func ConfirmationAction(sender SMSSender, senderID, template string) ActionFunc {
	return func(ctx context.Context, req ussd.Request, data map[string]string) error {
		if sender == nil {
			return errors.New("flow: confirmation action is not configured")
		}
		resp, err := sender.Send(ctx, client.SendSMSRequest{
			To:      []string{req.PhoneNumber},
			Message: interpolate(template, req, data),
			From:    senderID,
		})
		if err != nil {
			return fmt.Errorf("flow: send confirmation: %w", err)
		}
		for _, r := range resp.SMSMessageData.Recipients {
			if !r.Accepted() {
				return fmt.Errorf("flow: send confirmation: %s rejected with %s", r.Number, r.Status)
			}
		}
		return nil
	}
}
