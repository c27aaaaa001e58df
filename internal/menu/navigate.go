package menu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stksupply/ticket-bot/internal/platform"
)

// Prefix marks custom IDs owned by the menu.
const Prefix = "menu"

const (
	opAction = "act"
	opPick   = "pick"
	sep      = "|"
	// maxCustomID is the platform limit on control payloads.
	maxCustomID   = 100
	buttonsPerRow = 5
	noShop        = "-"
)

// ErrUnknownPayload is returned for custom IDs the graph cannot resolve.
var ErrUnknownPayload = errors.New("unknown menu payload")

// Payload is everything a menu control carries.
type Payload struct {
	Op     string
	Screen string
	Shop   string
	Index  int
}

// Encode renders p as a custom ID.
func (p Payload) Encode() string {
	shop := p.Shop
	if shop == "" {
		shop = noShop
	}
	parts := []string{Prefix, p.Op, p.Screen, shop}
	if p.Op == opAction {
		parts = append(parts, strconv.Itoa(p.Index))
	}
	return strings.Join(parts, sep)
}

// IsMenuID reports whether customID belongs to the menu.
func IsMenuID(customID string) bool {
	return strings.HasPrefix(customID, Prefix+sep)
}

// ParsePayload decodes a custom ID produced by Encode.
func ParsePayload(customID string) (Payload, error) {
	parts := strings.Split(customID, sep)
	if len(parts) < 4 || parts[0] != Prefix {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownPayload, customID)
	}
	p := Payload{Op: parts[1], Screen: parts[2], Shop: parts[3]}
	if p.Shop == noShop {
		p.Shop = ""
	}
	switch p.Op {
	case opAction:
		if len(parts) != 5 {
			return Payload{}, fmt.Errorf("%w: %q", ErrUnknownPayload, customID)
		}
		idx, err := strconv.Atoi(parts[4])
		if err != nil || idx < 0 {
			return Payload{}, fmt.Errorf("%w: bad index in %q", ErrUnknownPayload, customID)
		}
		p.Index = idx
	case opPick:
		if len(parts) != 4 {
			return Payload{}, fmt.Errorf("%w: %q", ErrUnknownPayload, customID)
		}
	default:
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownPayload, customID)
	}
	return p, nil
}

// Effect is a resolved leaf action.
type Effect struct {
	Kind     EffectKind
	ShopID   string
	Shop     string
	Category string
}

// Outcome is the result of resolving a click: either a screen to render or
// an effect to run.
type Outcome struct {
	Screen string
	ShopID string
	Effect *Effect
}

// Resolve interprets a click on customID. values carries the selection for
// select menus and is ignored for buttons.
func (g *Graph) Resolve(customID string, values []string) (Outcome, error) {
	p, err := ParsePayload(customID)
	if err != nil {
		return Outcome{}, err
	}
	screen, ok := g.screens[p.Screen]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: screen %q", ErrUnknownPayload, p.Screen)
	}
	if p.Shop != "" {
		if _, ok := g.Shop(p.Shop); !ok {
			return Outcome{}, fmt.Errorf("%w: shop %q", ErrUnknownPayload, p.Shop)
		}
	}

	if p.Op == opPick {
		return g.resolvePick(screen, p.Shop, values)
	}

	if p.Index >= len(screen.Actions) {
		return Outcome{}, fmt.Errorf("%w: action %d on %q", ErrUnknownPayload, p.Index, p.Screen)
	}
	action := screen.Actions[p.Index]
	shop := p.Shop
	if action.Shop != "" {
		shop = action.Shop
	}
	switch {
	case action.Next != "":
		return Outcome{Screen: action.Next, ShopID: shop}, nil
	case action.Back:
		return Outcome{Screen: screen.Parent, ShopID: shop}, nil
	default:
		return Outcome{ShopID: shop, Effect: &Effect{
			Kind:     action.Effect.Kind,
			ShopID:   shop,
			Shop:     g.ShopLabel(shop),
			Category: action.Effect.Category,
		}}, nil
	}
}

func (g *Graph) resolvePick(screen *Screen, shop string, values []string) (Outcome, error) {
	sel := screen.Select
	if sel == nil {
		return Outcome{}, fmt.Errorf("%w: %q has no select", ErrUnknownPayload, screen.ID)
	}
	chosen := map[string]bool{}
	for _, v := range values {
		chosen[v] = true
	}
	var labels []string
	for _, opt := range sel.Options {
		if chosen[opt.Value] {
			labels = append(labels, opt.Label)
			delete(chosen, opt.Value)
		}
	}
	if len(chosen) > 0 || len(labels) < sel.Min || len(labels) > sel.Max {
		return Outcome{}, fmt.Errorf("%w: invalid selection %v on %q", ErrUnknownPayload, values, screen.ID)
	}
	return Outcome{ShopID: shop, Effect: &Effect{
		Kind:     EffectOrder,
		ShopID:   shop,
		Shop:     g.ShopLabel(shop),
		Category: sel.Category + ": " + strings.Join(labels, ", "),
	}}, nil
}

// Render builds the message for a screen. shopID fills the {shop}
// placeholder and is carried into every control.
func (g *Graph) Render(screenID, shopID string) (platform.Message, error) {
	screen, ok := g.screens[screenID]
	if !ok {
		return platform.Message{}, fmt.Errorf("%w: screen %q", ErrUnknownPayload, screenID)
	}
	shopLabel := g.ShopLabel(shopID)
	if shopLabel == "" {
		shopLabel = "STK Supply"
	}
	fill := func(s string) string { return strings.ReplaceAll(s, "{shop}", shopLabel) }

	msg := platform.Message{Embed: &platform.Embed{
		Title:       fill(screen.Title),
		Description: strings.TrimSpace(fill(screen.Description)),
		Color:       screen.Color,
		Footer:      "STK Supply • tap a button to continue",
	}}

	if sel := screen.Select; sel != nil {
		menu := &platform.SelectMenu{
			CustomID:    Payload{Op: opPick, Screen: screen.ID, Shop: shopID}.Encode(),
			Placeholder: sel.Placeholder,
			MinValues:   sel.Min,
			MaxValues:   sel.Max,
		}
		for _, opt := range sel.Options {
			menu.Options = append(menu.Options, platform.SelectOption{Label: opt.Label, Value: opt.Value, Description: opt.Description})
		}
		msg.Rows = append(msg.Rows, platform.Row{Select: menu})
	}

	var row platform.Row
	for i, action := range screen.Actions {
		id := Payload{Op: opAction, Screen: screen.ID, Shop: shopID, Index: i}.Encode()
		if len(id) > maxCustomID {
			return platform.Message{}, fmt.Errorf("custom id for %q action %d exceeds %d bytes", screen.ID, i, maxCustomID)
		}
		row.Buttons = append(row.Buttons, platform.Button{Label: action.Label, CustomID: id, Style: styleOf(action.Style)})
		if len(row.Buttons) == buttonsPerRow {
			msg.Rows = append(msg.Rows, row)
			row = platform.Row{}
		}
	}
	if len(row.Buttons) > 0 {
		msg.Rows = append(msg.Rows, row)
	}
	return msg, nil
}

// RenderRoot renders the shop selection screen.
func (g *Graph) RenderRoot() (platform.Message, error) {
	return g.Render(g.root, "")
}

func styleOf(s string) platform.ButtonStyle {
	switch s {
	case "secondary":
		return platform.ButtonSecondary
	case "success":
		return platform.ButtonSuccess
	case "danger":
		return platform.ButtonDanger
	default:
		return platform.ButtonPrimary
	}
}
