// Package menu interprets the storefront as a static tree of screens. A
// screen is data: a title, a description and a fixed set of actions. Each
// action either moves to another screen or triggers a ticket effect. No
// navigation state is kept server side; everything needed to resolve a click
// travels in the control's custom ID.
package menu

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// EffectKind names what a leaf action does.
type EffectKind string

const (
	EffectOrder   EffectKind = "order"
	EffectSupport EffectKind = "support"
)

// EffectSpec is the effect part of an action as declared in the catalog.
type EffectSpec struct {
	Kind     EffectKind `yaml:"kind"`
	Category string     `yaml:"category"`
}

// Action is one button on a screen.
type Action struct {
	Label  string      `yaml:"label"`
	Style  string      `yaml:"style"`
	Next   string      `yaml:"next"`
	Back   bool        `yaml:"back"`
	Shop   string      `yaml:"shop"`
	Effect *EffectSpec `yaml:"effect"`
}

// Option is one entry of a multi-select.
type Option struct {
	Label       string `yaml:"label"`
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
}

// Select is a multi-select whose submission always opens an order ticket;
// the chosen labels become the order category.
type Select struct {
	Placeholder string   `yaml:"placeholder"`
	Min         int      `yaml:"min"`
	Max         int      `yaml:"max"`
	Category    string   `yaml:"category"`
	Options     []Option `yaml:"options"`
}

// Screen is one node of the menu tree.
type Screen struct {
	ID          string   `yaml:"id"`
	Parent      string   `yaml:"parent"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Color       int      `yaml:"color"`
	Actions     []Action `yaml:"actions"`
	Select      *Select  `yaml:"select"`
}

// Shop is a storefront location chosen on the root screen.
type Shop struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

type catalog struct {
	Root    string   `yaml:"root"`
	Shops   []Shop   `yaml:"shops"`
	Screens []Screen `yaml:"screens"`
}

// Graph is a validated menu tree.
type Graph struct {
	root    string
	screens map[string]*Screen
	order   []string
	shops   map[string]Shop
}

// Default loads the embedded storefront catalog.
func Default() (*Graph, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Graph, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse menu catalog: %w", err)
	}
	g := &Graph{
		root:    c.Root,
		screens: make(map[string]*Screen, len(c.Screens)),
		shops:   make(map[string]Shop, len(c.Shops)),
	}
	for _, shop := range c.Shops {
		if shop.ID == "" || shop.Label == "" {
			return nil, errors.New("menu catalog: shop needs id and label")
		}
		g.shops[shop.ID] = shop
	}
	for i := range c.Screens {
		screen := &c.Screens[i]
		if screen.ID == "" {
			return nil, fmt.Errorf("menu catalog: screen %d has no id", i)
		}
		if _, dup := g.screens[screen.ID]; dup {
			return nil, fmt.Errorf("menu catalog: duplicate screen %q", screen.ID)
		}
		g.screens[screen.ID] = screen
		g.order = append(g.order, screen.ID)
	}
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("menu catalog: %w", err)
	}
	return g, nil
}

func (g *Graph) validate() error {
	root, ok := g.screens[g.root]
	if !ok {
		return fmt.Errorf("root screen %q not defined", g.root)
	}
	if root.Parent != "" {
		return fmt.Errorf("root screen %q must not have a parent", g.root)
	}
	for _, id := range g.order {
		screen := g.screens[id]
		if id != g.root {
			if err := g.checkAncestry(screen); err != nil {
				return err
			}
		}
		if len(screen.Actions) == 0 && screen.Select == nil {
			return fmt.Errorf("screen %q has no actions", id)
		}
		for i, action := range screen.Actions {
			if err := g.checkAction(screen, i, action); err != nil {
				return err
			}
		}
		if screen.Select != nil {
			if err := checkSelect(screen); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkAncestry walks parents up to the root, rejecting dangling parents and
// cycles.
func (g *Graph) checkAncestry(screen *Screen) error {
	seen := map[string]bool{screen.ID: true}
	for cur := screen; cur.ID != g.root; {
		parent, ok := g.screens[cur.Parent]
		if !ok {
			return fmt.Errorf("screen %q has unknown parent %q", cur.ID, cur.Parent)
		}
		if seen[parent.ID] {
			return fmt.Errorf("screen %q is part of a cycle", screen.ID)
		}
		seen[parent.ID] = true
		cur = parent
	}
	return nil
}

func (g *Graph) checkAction(screen *Screen, i int, action Action) error {
	where := fmt.Sprintf("screen %q action %d (%s)", screen.ID, i, action.Label)
	if action.Label == "" {
		return fmt.Errorf("%s: label required", where)
	}
	targets := 0
	if action.Next != "" {
		targets++
	}
	if action.Back {
		targets++
	}
	if action.Effect != nil {
		targets++
	}
	if targets != 1 {
		return fmt.Errorf("%s: exactly one of next, back or effect required", where)
	}
	if action.Shop != "" {
		if _, ok := g.Shop(action.Shop); !ok {
			return fmt.Errorf("%s: unknown shop %q", where, action.Shop)
		}
	}
	switch {
	case action.Next != "":
		next, ok := g.screens[action.Next]
		if !ok {
			return fmt.Errorf("%s: unknown screen %q", where, action.Next)
		}
		if next.Parent != screen.ID {
			return fmt.Errorf("%s: %q is not a child screen", where, action.Next)
		}
	case action.Back:
		if screen.ID == g.root {
			return fmt.Errorf("%s: root screen cannot go back", where)
		}
	default:
		switch action.Effect.Kind {
		case EffectSupport:
		case EffectOrder:
			if action.Effect.Category == "" {
				return fmt.Errorf("%s: order effect needs a category", where)
			}
		default:
			return fmt.Errorf("%s: unknown effect %q", where, action.Effect.Kind)
		}
	}
	return nil
}

func checkSelect(screen *Screen) error {
	sel := screen.Select
	if len(sel.Options) == 0 {
		return fmt.Errorf("screen %q: select has no options", screen.ID)
	}
	if sel.Min < 1 || sel.Max < sel.Min || sel.Max > len(sel.Options) {
		return fmt.Errorf("screen %q: select bounds %d..%d invalid", screen.ID, sel.Min, sel.Max)
	}
	if sel.Category == "" {
		return fmt.Errorf("screen %q: select needs a category", screen.ID)
	}
	values := map[string]bool{}
	for _, opt := range sel.Options {
		if opt.Value == "" || values[opt.Value] {
			return fmt.Errorf("screen %q: select option values must be unique and non-empty", screen.ID)
		}
		values[opt.Value] = true
	}
	return nil
}

// Root returns the root screen ID.
func (g *Graph) Root() string {
	return g.root
}

// Screen looks up a screen.
func (g *Graph) Screen(id string) (*Screen, bool) {
	s, ok := g.screens[id]
	return s, ok
}

// Shop looks up a shop.
func (g *Graph) Shop(id string) (Shop, bool) {
	s, ok := g.shops[id]
	return s, ok
}

// ShopLabel returns the display label of a shop, or "" when unknown.
func (g *Graph) ShopLabel(id string) string {
	s, _ := g.Shop(id)
	return s.Label
}

// Screens returns screen IDs in catalog order.
func (g *Graph) Screens() []string {
	return append([]string(nil), g.order...)
}
