package ussd

import "strings"

// Option is one selectable line of a Menu.
type Option struct {
	Key   string
	Label string
}

// Menu renders a header followed by numbered options. Options keep their
// insertion order; duplicate keys are rendered as given.
type Menu struct {
	header  string
	options []Option
}

// NewMenu starts a menu with the given header line.
func NewMenu(header string) *Menu {
	return &Menu{header: header}
}

// AddOption appends a single option.
func (m *Menu) AddOption(key, label string) *Menu {
	m.options = append(m.options, Option{Key: key, Label: label})
	return m
}

// AddOptions appends options in order.
func (m *Menu) AddOptions(opts ...Option) *Menu {
	m.options = append(m.options, opts...)
	return m
}

// Options returns a copy of the menu options.
func (m *Menu) Options() []Option {
	out := make([]Option, len(m.options))
	copy(out, m.options)
	return out
}

// Text renders the header and one "<key>. <label>" line per option.
func (m *Menu) Text() string {
	var b strings.Builder
	b.WriteString(m.header)
	for _, opt := range m.options {
		b.WriteByte('\n')
		b.WriteString(opt.Key)
		b.WriteString(". ")
		b.WriteString(opt.Label)
	}
	return b.String()
}

// BuildContinue renders the menu into a continuing response.
func (m *Menu) BuildContinue() Response {
	return Continue(m.Text())
}

// BuildEnd renders the menu into an ending response.
func (m *Menu) BuildEnd() Response {
	return End(m.Text())
}
