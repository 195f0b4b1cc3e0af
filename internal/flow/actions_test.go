package flow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/flow"
	"github.com/example/africastalking-go/ussd"
)

type fakeCaller struct {
	req  client.CallRequest
	resp *client.CallResponse
	err  error
}

func (f *fakeCaller) Call(_ context.Context, req client.CallRequest) (*client.CallResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeSMS struct {
	req    client.SendSMSRequest
	status int
}

func (f *fakeSMS) Send(_ context.Context, req client.SendSMSRequest) (*client.SendSMSResponse, error) {
	f.req = req
	resp := &client.SendSMSResponse{}
	resp.SMSMessageData.Recipients = []client.SMSRecipient{{StatusCode: f.status, Number: req.To[0], Status: "Status"}}
	return resp, nil
}

var dialler = ussd.NewRequest("ATUid_7", "*384#", "+254711000000", "3", "63902")

func TestCallbackAction(t *testing.T) {
	caller := &fakeCaller{resp: &client.CallResponse{ErrorMessage: "None"}}
	if err := flow.CallbackAction(caller, "+254711082000")(context.Background(), dialler, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.req.From != "+254711082000" || caller.req.To[0] != "+254711000000" || caller.req.ClientRequestID != "ATUid_7" {
		t.Fatalf("unexpected call request %+v", caller.req)
	}

	caller = &fakeCaller{resp: &client.CallResponse{ErrorMessage: "Invalid callerId"}}
	if err := flow.CallbackAction(caller, "+254711082000")(context.Background(), dialler, nil); err == nil {
		t.Fatal("expected gateway error message to fail the action")
	}

	caller = &fakeCaller{err: errors.New("boom")}
	if err := flow.CallbackAction(caller, "+254711082000")(context.Background(), dialler, nil); err == nil {
		t.Fatal("expected transport error to fail the action")
	}

	if err := flow.CallbackAction(caller, "")(context.Background(), dialler, nil); err == nil {
		t.Fatal("expected missing virtual number to fail the action")
	}
}

func TestConfirmationAction(t *testing.T) {
	sms := &fakeSMS{status: 101}
	action := flow.ConfirmationAction(sms, "TUUNGANE", "Karibu {name}, dial {serviceCode} any time.")
	if err := action(context.Background(), dialler, map[string]string{"name": "Amina"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sms.req.Message != "Karibu Amina, dial *384# any time." || sms.req.From != "TUUNGANE" {
		t.Fatalf("unexpected sms request %+v", sms.req)
	}

	sms = &fakeSMS{status: 403}
	err := flow.ConfirmationAction(sms, "", "hi")(context.Background(), dialler, nil)
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Fatalf("expected rejected recipient error, got %v", err)
	}
}
