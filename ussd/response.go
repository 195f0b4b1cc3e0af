package ussd

import "strings"

const (
	continuePrefix = "CON "
	endPrefix      = "END "
)

// Response is the reply to a USSD webhook. A continuing response keeps the
// session open and waits for more input, an ending response closes it.
type Response struct {
	ending  bool
	message string
}

// Continue returns a response that keeps the session open.
func Continue(message string) Response {
	return Response{message: trimPrefix(message)}
}

// End returns a response that terminates the session.
func End(message string) Response {
	return Response{ending: true, message: trimPrefix(message)}
}

// trimPrefix drops a single protocol prefix already present in message so
// the rendered body never carries it twice.
func trimPrefix(message string) string {
	if strings.HasPrefix(message, continuePrefix) {
		return message[len(continuePrefix):]
	}
	if strings.HasPrefix(message, endPrefix) {
		return message[len(endPrefix):]
	}
	return message
}

// IsContinuing reports whether the session stays open.
func (r Response) IsContinuing() bool { return !r.ending }

// IsEnding reports whether the session is terminated.
func (r Response) IsEnding() bool { return r.ending }

// Message returns the text shown to the user, without protocol prefix.
func (r Response) Message() string { return r.message }

// String renders the gateway wire format: "CON <message>" or "END <message>".
func (r Response) String() string {
	if r.ending {
		return endPrefix + r.message
	}
	return continuePrefix + r.message
}

// Bytes is String as a byte slice, ready for an HTTP body.
func (r Response) Bytes() []byte {
	return []byte(r.String())
}
