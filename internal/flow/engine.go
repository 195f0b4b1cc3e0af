package flow

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/internal/session"
	"github.com/example/africastalking-go/internal/util"
	"github.com/example/africastalking-go/ussd"
)

// maxScreenRunes is the longest message most handsets display in one screen.
const maxScreenRunes = 182

// Engine answers USSD requests from a Menu. Navigation is derived from the
// request text alone; the session store records captured inputs and the
// last screen for the rest of the application. Store failures are logged
// and do not affect the reply.
type Engine struct {
	menu    *Menu
	store   session.Store
	logger  zerolog.Logger
	actions map[string]ActionFunc
}

// ActionFunc runs when a message node naming it is shown. data holds the
// inputs captured on the way there.
type ActionFunc func(ctx context.Context, req ussd.Request, data map[string]string) error

// Option customises an Engine.
type Option func(*Engine)

// WithAction registers fn under name.
func WithAction(name string, fn ActionFunc) Option {
	return func(e *Engine) {
		if name != "" && fn != nil {
			e.actions[name] = fn
		}
	}
}

// NewEngine builds an engine. store may be nil.
func NewEngine(menu *Menu, store session.Store, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if menu == nil || menu.Root == nil {
		return nil, errors.New("flow: menu is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	e := &Engine{
		menu:    menu,
		store:   store,
		logger:  logger.With().Str("component", "ussd_flow").Logger(),
		actions: make(map[string]ActionFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// HandleUSSD renders the screen for the request's navigation path.
func (e *Engine) HandleUSSD(ctx context.Context, req ussd.Request) (ussd.Response, error) {
	captured := make(map[string]string)
	node := e.walk(req, captured)

	var resp ussd.Response
	if node == nil {
		resp = ussd.End(e.menu.Invalid)
	} else {
		resp = e.render(node, req, captured)
	}

	if err := util.EnsureMaxRunes("ussd response", resp.Message(), maxScreenRunes); err != nil {
		e.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("ussd response may be truncated by the handset")
	}

	e.record(ctx, req, captured, resp)
	if node != nil && node.Action != "" {
		e.run(ctx, node.Action, req, captured)
	}
	return resp, nil
}

func (e *Engine) run(ctx context.Context, name string, req ussd.Request, captured map[string]string) {
	fn, ok := e.actions[name]
	if !ok {
		e.logger.Warn().Str("action", name).Msg("no handler registered for menu action")
		return
	}
	if err := fn(ctx, req, captured); err != nil {
		e.logger.Error().Err(err).Str("action", name).Str("session_id", req.SessionID).Msg("menu action failed")
	}
}

// HandleNotification drops the state of a finished session.
func (e *Engine) HandleNotification(ctx context.Context, n ussd.Notification) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Delete(ctx, n.SessionID); err != nil {
		return err
	}
	return nil
}

// walk returns the node reached by the request's path, or nil when the path
// leaves the menu.
func (e *Engine) walk(req ussd.Request, captured map[string]string) *Node {
	node := e.menu.Root
	for _, input := range req.NavigationPath() {
		switch node.kind() {
		case kindMenu:
			next := node.child(strings.TrimSpace(input))
			if next == nil {
				return nil
			}
			node = next
		case kindPrompt:
			captured[node.Store] = strings.TrimSpace(input)
			node = node.Next
		default:
			return nil
		}
	}
	return node
}

func (e *Engine) render(node *Node, req ussd.Request, captured map[string]string) ussd.Response {
	switch node.kind() {
	case kindMenu:
		title := node.Title
		if title == "" {
			title = node.Label
		}
		menu := ussd.NewMenu(interpolate(title, req, captured))
		for _, opt := range node.Options {
			menu.AddOption(opt.Key, opt.Label)
		}
		return menu.BuildContinue()
	case kindPrompt:
		return ussd.Continue(interpolate(node.Prompt, req, captured))
	default:
		return ussd.End(interpolate(node.Message, req, captured))
	}
}

func interpolate(text string, req ussd.Request, captured map[string]string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	pairs := []string{
		"{phoneNumber}", req.PhoneNumber,
		"{serviceCode}", req.ServiceCode,
		"{network}", req.Network().Name(),
	}
	for k, v := range captured {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (e *Engine) record(ctx context.Context, req ussd.Request, captured map[string]string, resp ussd.Response) {
	if e.store == nil {
		return
	}

	s, err := e.store.Get(ctx, req.SessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		s = &session.Session{ID: req.SessionID, PhoneNumber: req.PhoneNumber}
	case err != nil:
		e.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to load session")
		s = &session.Session{ID: req.SessionID, PhoneNumber: req.PhoneNumber}
	}

	for k, v := range captured {
		s.Set(k, v)
	}
	s.Hops++
	s.LastResponse = resp.String()

	if err := e.store.Save(ctx, s); err != nil {
		e.logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to save session")
	}
}
