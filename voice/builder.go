package voice

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// document is the <Response> root of a voice reply.
type document struct {
	XMLName xml.Name `xml:"Response"`
	Actions []Action
}

// ActionBuilder accumulates actions in call order and renders them as a
// voice response document. The first invalid action is remembered and
// reported by Build; later calls still append.
type ActionBuilder struct {
	actions []Action
	err     error
}

// NewActionBuilder returns an empty builder.
func NewActionBuilder() *ActionBuilder {
	return &ActionBuilder{}
}

// SayOption customises a Say action.
type SayOption func(*Say)

// WithVoice selects the text-to-speech voice, "man" or "woman" on the gateway.
func WithVoice(voice string) SayOption {
	return func(s *Say) { s.Voice = voice }
}

// WithPlayBeep plays a beep after the text is read.
func WithPlayBeep(beep bool) SayOption {
	return func(s *Say) { s.PlayBeep = &beep }
}

func newSay(text string, opts []SayOption) *Say {
	s := &Say{Text: text}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnqueueOption customises an Enqueue action.
type EnqueueOption func(*Enqueue)

// WithHoldMusic sets the audio played while the caller waits.
func WithHoldMusic(url string) EnqueueOption {
	return func(e *Enqueue) { e.HoldMusic = url }
}

// WithQueueName places the caller in a named queue.
func WithQueueName(name string) EnqueueOption {
	return func(e *Enqueue) { e.Name = name }
}

// Append adds prebuilt actions.
func (b *ActionBuilder) Append(actions ...Action) *ActionBuilder {
	for _, a := range actions {
		if a == nil {
			continue
		}
		if err := a.validate(); err != nil && b.err == nil {
			b.err = err
		}
		b.actions = append(b.actions, a)
	}
	return b
}

// Say reads text to the caller.
func (b *ActionBuilder) Say(text string, opts ...SayOption) *ActionBuilder {
	return b.Append(*newSay(text, opts))
}

// Play streams the audio file at url.
func (b *ActionBuilder) Play(url string) *ActionBuilder {
	return b.Append(Play{URL: url})
}

// GetDigits appends the digit collection configured by g.
func (b *ActionBuilder) GetDigits(g *GetDigitsAction) *ActionBuilder {
	if g == nil {
		g = NewGetDigitsAction()
	}
	return b.Append(g.el)
}

// Dial appends the dial configured by d.
func (b *ActionBuilder) Dial(d *DialAction) *ActionBuilder {
	if d == nil {
		d = NewDialAction()
	}
	return b.Append(d.el)
}

// Record appends the recording configured by r.
func (b *ActionBuilder) Record(r *RecordAction) *ActionBuilder {
	if r == nil {
		r = NewRecordAction()
	}
	return b.Append(r.el)
}

// Enqueue parks the caller in a queue.
func (b *ActionBuilder) Enqueue(opts ...EnqueueOption) *ActionBuilder {
	e := Enqueue{}
	for _, opt := range opts {
		if opt != nil {
			opt(&e)
		}
	}
	return b.Append(e)
}

// Dequeue pulls the next caller from a queue to phoneNumber. An empty
// queueName omits the attribute.
func (b *ActionBuilder) Dequeue(phoneNumber, queueName string) *ActionBuilder {
	return b.Append(Dequeue{PhoneNumber: phoneNumber, Name: queueName})
}

// Conference joins the caller to a conference.
func (b *ActionBuilder) Conference() *ActionBuilder {
	return b.Append(Conference{})
}

// Redirect transfers control of the call to url.
func (b *ActionBuilder) Redirect(url string) *ActionBuilder {
	return b.Append(Redirect{URL: url})
}

// Reject declines the call.
func (b *ActionBuilder) Reject() *ActionBuilder {
	return b.Append(Reject{})
}

// Actions returns the accumulated actions in order.
func (b *ActionBuilder) Actions() []Action {
	out := make([]Action, len(b.actions))
	copy(out, b.actions)
	return out
}

// Len returns the number of accumulated actions.
func (b *ActionBuilder) Len() int { return len(b.actions) }

// Err returns the first validation error, if any.
func (b *ActionBuilder) Err() error { return b.err }

// Build renders the document with an XML declaration. Actions following a
// terminal action are rendered as given.
func (b *ActionBuilder) Build() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	out, err := xml.Marshal(document{Actions: b.actions})
	if err != nil {
		return "", fmt.Errorf("voice: marshal response: %w", err)
	}
	return xml.Header + string(out), nil
}

// GetDigitsAction configures a GetDigits element.
type GetDigitsAction struct {
	el GetDigits
}

// NewGetDigitsAction returns an unconfigured GetDigits action.
func NewGetDigitsAction() *GetDigitsAction {
	return &GetDigitsAction{}
}

// Say sets a spoken prompt. It replaces any Play prompt.
func (g *GetDigitsAction) Say(text string, opts ...SayOption) *GetDigitsAction {
	g.el.Say = newSay(text, opts)
	g.el.Play = nil
	return g
}

// Play sets an audio prompt. It replaces any Say prompt.
func (g *GetDigitsAction) Play(url string) *GetDigitsAction {
	g.el.Play = &Play{URL: url}
	g.el.Say = nil
	return g
}

// NumDigits sets how many digits to collect.
func (g *GetDigitsAction) NumDigits(n int) *GetDigitsAction {
	g.el.NumDigits = &n
	return g
}

// FinishOnKey sets the key that ends input collection.
func (g *GetDigitsAction) FinishOnKey(key string) *GetDigitsAction {
	g.el.FinishOnKey = key
	return g
}

// Timeout sets the seconds to wait for input.
func (g *GetDigitsAction) Timeout(seconds int) *GetDigitsAction {
	g.el.Timeout = &seconds
	return g
}

// CallbackURL sets where the collected digits are posted.
func (g *GetDigitsAction) CallbackURL(url string) *GetDigitsAction {
	g.el.CallbackURL = url
	return g
}

// DialAction configures a Dial element.
type DialAction struct {
	el Dial
}

// NewDialAction dials the given numbers. Empty entries are dropped.
func NewDialAction(numbers ...string) *DialAction {
	kept := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	return &DialAction{el: Dial{PhoneNumbers: strings.Join(kept, ",")}}
}

// Record toggles recording of the bridged call.
func (d *DialAction) Record(record bool) *DialAction {
	d.el.Record = &record
	return d
}

// Sequential dials the numbers one after another instead of simultaneously.
func (d *DialAction) Sequential(sequential bool) *DialAction {
	d.el.Sequential = &sequential
	return d
}

// MaxDuration caps the bridged call length in seconds.
func (d *DialAction) MaxDuration(seconds int) *DialAction {
	d.el.MaxDuration = &seconds
	return d
}

// CallerID sets the number presented to the dialled party.
func (d *DialAction) CallerID(id string) *DialAction {
	d.el.CallerID = id
	return d
}

// RingbackTone sets audio played to the caller while dialling.
func (d *DialAction) RingbackTone(url string) *DialAction {
	d.el.RingbackTone = url
	return d
}

// RecordAction configures a Record element.
type RecordAction struct {
	el Record
}

// NewRecordAction returns an unconfigured Record action.
func NewRecordAction() *RecordAction {
	return &RecordAction{}
}

// Say sets a spoken prompt. It replaces any Play prompt.
func (r *RecordAction) Say(text string, opts ...SayOption) *RecordAction {
	r.el.Say = newSay(text, opts)
	r.el.Play = nil
	return r
}

// Play sets an audio prompt. It replaces any Say prompt.
func (r *RecordAction) Play(url string) *RecordAction {
	r.el.Play = &Play{URL: url}
	r.el.Say = nil
	return r
}

// PlayBeep plays a beep before recording.
func (r *RecordAction) PlayBeep(beep bool) *RecordAction {
	r.el.PlayBeep = &beep
	return r
}

// MaxLength caps the recording length in seconds.
func (r *RecordAction) MaxLength(seconds int) *RecordAction {
	r.el.MaxLength = &seconds
	return r
}

// Timeout sets the seconds of silence that end the recording.
func (r *RecordAction) Timeout(seconds int) *RecordAction {
	r.el.Timeout = &seconds
	return r
}

// FinishOnKey sets the key that ends the recording.
func (r *RecordAction) FinishOnKey(key string) *RecordAction {
	r.el.FinishOnKey = key
	return r
}

// TrimSilence strips leading and trailing silence.
func (r *RecordAction) TrimSilence(trim bool) *RecordAction {
	r.el.TrimSilence = &trim
	return r
}

// CallbackURL sets where the recording URL is posted.
func (r *RecordAction) CallbackURL(url string) *RecordAction {
	r.el.CallbackURL = url
	return r
}
