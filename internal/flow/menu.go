// Package flow drives a USSD session through a menu tree declared in YAML.
package flow

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_menu.yaml
var defaultMenu []byte

const defaultInvalid = "Invalid choice. Please try again."

// Node is one screen of the menu. Exactly one of Options, Message or Prompt
// is set: a menu lists options, a message ends the session and a prompt
// captures free text before moving to Next.
type Node struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`

	Title   string  `yaml:"title"`
	Options []*Node `yaml:"options"`

	Message string `yaml:"message"`
	// Action names a hook run after a message is shown.
	Action string `yaml:"action"`

	Prompt string `yaml:"prompt"`
	Store  string `yaml:"store"`
	Next   *Node  `yaml:"next"`
}

type nodeKind int

const (
	kindMenu nodeKind = iota
	kindMessage
	kindPrompt
)

func (n *Node) kind() nodeKind {
	switch {
	case len(n.Options) > 0:
		return kindMenu
	case n.Prompt != "":
		return kindPrompt
	default:
		return kindMessage
	}
}

func (n *Node) child(key string) *Node {
	for _, opt := range n.Options {
		if opt.Key == key {
			return opt
		}
	}
	return nil
}

// Menu is a parsed menu definition.
type Menu struct {
	// Invalid is shown, ending the session, when input matches no option.
	Invalid string `yaml:"invalid"`
	Root    *Node  `yaml:"root"`
}

// Load parses and validates a menu definition.
func Load(r io.Reader) (*Menu, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Menu
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("flow: decode menu: %w", err)
	}
	if m.Invalid == "" {
		m.Invalid = defaultInvalid
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads a menu definition from path.
func LoadFile(path string) (*Menu, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("flow: open menu: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the bundled sample menu.
func Default() *Menu {
	m, err := Load(bytes.NewReader(defaultMenu))
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Menu) validate() error {
	if m.Root == nil {
		return errors.New("flow: menu has no root")
	}
	return validateNode(m.Root, "root")
}

func validateNode(n *Node, path string) error {
	set := 0
	if len(n.Options) > 0 {
		set++
	}
	if n.Message != "" {
		set++
	}
	if n.Prompt != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("flow: %s must set exactly one of options, message or prompt", path)
	}
	if n.Action != "" && n.Message == "" {
		return fmt.Errorf("flow: %s action is only allowed on message nodes", path)
	}

	switch n.kind() {
	case kindMenu:
		seen := make(map[string]struct{}, len(n.Options))
		for i, opt := range n.Options {
			if opt == nil || opt.Key == "" {
				return fmt.Errorf("flow: %s option %d has no key", path, i)
			}
			if _, dup := seen[opt.Key]; dup {
				return fmt.Errorf("flow: %s has duplicate key %q", path, opt.Key)
			}
			seen[opt.Key] = struct{}{}
			if err := validateNode(opt, path+"/"+opt.Key); err != nil {
				return err
			}
		}
	case kindPrompt:
		if n.Store == "" {
			return fmt.Errorf("flow: %s prompt needs a store key", path)
		}
		if n.Next == nil {
			return fmt.Errorf("flow: %s prompt needs a next node", path)
		}
		return validateNode(n.Next, path+"/"+n.Store)
	}
	return nil
}
