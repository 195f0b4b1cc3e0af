// Package ussd models the USSD webhook exchange with the Africa's Talking
// gateway: the inbound request, the CON/END response, a menu builder, the
// end-of-session notification and the mobile network code table.
package ussd

import (
	"net/url"
	"strings"
)

// pathSeparator delimits user inputs inside Request.Text.
const pathSeparator = "*"

// Request is a single USSD webhook delivery. Text holds the accumulated
// inputs of the session so far, joined with "*"; it is empty on the first
// delivery of a session.
type Request struct {
	SessionID   string `json:"sessionId" validate:"required"`
	ServiceCode string `json:"serviceCode" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Text        string `json:"text"`
	NetworkCode string `json:"networkCode" validate:"required"`
}

// NewRequest builds a Request from its raw fields.
func NewRequest(sessionID, serviceCode, phoneNumber, text, networkCode string) Request {
	return Request{
		SessionID:   sessionID,
		ServiceCode: serviceCode,
		PhoneNumber: phoneNumber,
		Text:        text,
		NetworkCode: networkCode,
	}
}

// RequestFromValues reads a form encoded webhook body.
func RequestFromValues(values url.Values) Request {
	return Request{
		SessionID:   values.Get("sessionId"),
		ServiceCode: values.Get("serviceCode"),
		PhoneNumber: values.Get("phoneNumber"),
		Text:        values.Get("text"),
		NetworkCode: values.Get("networkCode"),
	}
}

// IsInitial reports whether this is the first delivery of the session.
func (r Request) IsInitial() bool {
	return r.Text == ""
}

// Depth returns the number of inputs the user has entered so far.
func (r Request) Depth() int {
	if r.Text == "" {
		return 0
	}
	return strings.Count(r.Text, pathSeparator) + 1
}

// CurrentInput returns the most recent input. The boolean is false when the
// user has not entered anything yet.
func (r Request) CurrentInput() (string, bool) {
	if r.Text == "" {
		return "", false
	}
	idx := strings.LastIndex(r.Text, pathSeparator)
	return r.Text[idx+1:], true
}

// NavigationPath returns every input in the order it was entered. The slice
// is empty, never nil, for an initial request.
func (r Request) NavigationPath() []string {
	if r.Text == "" {
		return []string{}
	}
	return strings.Split(r.Text, pathSeparator)
}

// MatchesPath reports whether the accumulated text equals path exactly.
func (r Request) MatchesPath(path string) bool {
	return r.Text == path
}

// StartsWithPath is a raw string prefix test on the accumulated text. It is
// not token aware: "1*2" matches a text of "1*20". Use HasPathPrefix to
// compare whole inputs.
func (r Request) StartsWithPath(prefix string) bool {
	return strings.HasPrefix(r.Text, prefix)
}

// HasPathPrefix reports whether the navigation path begins with the given
// inputs, comparing whole tokens.
func (r Request) HasPathPrefix(tokens ...string) bool {
	path := r.NavigationPath()
	if len(tokens) > len(path) {
		return false
	}
	for i, tok := range tokens {
		if path[i] != tok {
			return false
		}
	}
	return true
}

// Network resolves the request's network code against the known table.
func (r Request) Network() NetworkCode {
	return FromCode(r.NetworkCode)
}
