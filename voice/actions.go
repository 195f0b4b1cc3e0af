// Package voice builds Africa's Talking voice markup and decodes the voice
// callback the gateway posts while a call is in progress.
package voice

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAction is returned by Build when an action carries an attribute
// value the gateway cannot interpret.
var ErrInvalidAction = errors.New("voice: invalid action")

// Action is one element of a voice response document. The set of actions is
// closed; use the element types declared in this package.
type Action interface {
	validate() error
}

// Say reads text to the caller.
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	PlayBeep *bool    `xml:"playBeep,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

func (Say) validate() error { return nil }

// Play streams an audio file to the caller.
type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:"url,attr"`
}

func (Play) validate() error { return nil }

// GetDigits collects keypad input, optionally after a prompt.
type GetDigits struct {
	XMLName     xml.Name `xml:"GetDigits"`
	NumDigits   *int     `xml:"numDigits,attr,omitempty"`
	FinishOnKey string   `xml:"finishOnKey,attr,omitempty"`
	Timeout     *int     `xml:"timeout,attr,omitempty"`
	CallbackURL string   `xml:"callbackUrl,attr,omitempty"`
	Say         *Say     `xml:"Say,omitempty"`
	Play        *Play    `xml:"Play,omitempty"`
}

func (g GetDigits) validate() error {
	if g.NumDigits != nil && *g.NumDigits < 1 {
		return fmt.Errorf("%w: GetDigits numDigits must be >= 1, got %d", ErrInvalidAction, *g.NumDigits)
	}
	if g.Timeout != nil && *g.Timeout < 0 {
		return fmt.Errorf("%w: GetDigits timeout must not be negative", ErrInvalidAction)
	}
	return validateFinishOnKey("GetDigits", g.FinishOnKey)
}

// Dial bridges the call to one or more numbers or SIP addresses.
type Dial struct {
	XMLName      xml.Name `xml:"Dial"`
	PhoneNumbers string   `xml:"phoneNumbers,attr"`
	Record       *bool    `xml:"record,attr,omitempty"`
	Sequential   *bool    `xml:"sequential,attr,omitempty"`
	CallerID     string   `xml:"callerId,attr,omitempty"`
	MaxDuration  *int     `xml:"maxDuration,attr,omitempty"`
	RingbackTone string   `xml:"ringbackTone,attr,omitempty"`
}

func (d Dial) validate() error {
	if strings.TrimSpace(d.PhoneNumbers) == "" {
		return fmt.Errorf("%w: Dial requires at least one phone number", ErrInvalidAction)
	}
	if d.MaxDuration != nil && *d.MaxDuration < 0 {
		return fmt.Errorf("%w: Dial maxDuration must not be negative", ErrInvalidAction)
	}
	return nil
}

// Record captures the caller's voice, optionally after a prompt.
type Record struct {
	XMLName     xml.Name `xml:"Record"`
	FinishOnKey string   `xml:"finishOnKey,attr,omitempty"`
	MaxLength   *int     `xml:"maxLength,attr,omitempty"`
	Timeout     *int     `xml:"timeout,attr,omitempty"`
	PlayBeep    *bool    `xml:"playBeep,attr,omitempty"`
	TrimSilence *bool    `xml:"trimSilence,attr,omitempty"`
	CallbackURL string   `xml:"callbackUrl,attr,omitempty"`
	Say         *Say     `xml:"Say,omitempty"`
	Play        *Play    `xml:"Play,omitempty"`
}

func (r Record) validate() error {
	if r.MaxLength != nil && *r.MaxLength < 0 {
		return fmt.Errorf("%w: Record maxLength must not be negative", ErrInvalidAction)
	}
	if r.Timeout != nil && *r.Timeout < 0 {
		return fmt.Errorf("%w: Record timeout must not be negative", ErrInvalidAction)
	}
	return validateFinishOnKey("Record", r.FinishOnKey)
}

// Enqueue parks the caller in a queue.
type Enqueue struct {
	XMLName   xml.Name `xml:"Enqueue"`
	HoldMusic string   `xml:"holdMusic,attr,omitempty"`
	Name      string   `xml:"name,attr,omitempty"`
}

func (Enqueue) validate() error { return nil }

// Dequeue connects a queued caller to the given agent number.
type Dequeue struct {
	XMLName     xml.Name `xml:"Dequeue"`
	PhoneNumber string   `xml:"phoneNumber,attr"`
	Name        string   `xml:"name,attr,omitempty"`
}

func (d Dequeue) validate() error {
	if strings.TrimSpace(d.PhoneNumber) == "" {
		return fmt.Errorf("%w: Dequeue requires a phone number", ErrInvalidAction)
	}
	return nil
}

// Conference joins the caller to a conference.
type Conference struct {
	XMLName xml.Name `xml:"Conference"`
}

func (Conference) validate() error { return nil }

// Redirect hands call control to another URL.
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	URL     string   `xml:",chardata"`
}

func (r Redirect) validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("%w: Redirect requires a url", ErrInvalidAction)
	}
	return nil
}

// Reject declines an incoming call.
type Reject struct {
	XMLName xml.Name `xml:"Reject"`
}

func (Reject) validate() error { return nil }

func validateFinishOnKey(action, key string) error {
	if key == "" {
		return nil
	}
	if len(key) != 1 || !strings.ContainsAny(key, "0123456789*#") {
		return fmt.Errorf("%w: %s finishOnKey must be one of 0-9, * or #, got %q", ErrInvalidAction, action, key)
	}
	return nil
}
