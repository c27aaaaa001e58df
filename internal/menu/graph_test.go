package menu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stksupply/ticket-bot/internal/platform"
)

func defaultGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Default()
	require.NoError(t, err)
	return g
}

func buttonByLabel(t *testing.T, msg platform.Message, label string) platform.Button {
	t.Helper()
	for _, b := range msg.Buttons() {
		if strings.Contains(b.Label, label) {
			return b
		}
	}
	t.Fatalf("no button labelled %q", label)
	return platform.Button{}
}

func TestDefaultCatalogIsValid(t *testing.T) {
	g := defaultGraph(t)
	assert.Equal(t, "shops", g.Root())
	assert.Equal(t, []string{"shops", "store", "weapons", "money", "luxury"}, g.Screens())
	assert.Equal(t, "Tha Bronx 3", g.ShopLabel("tb3"))
	assert.Empty(t, g.ShopLabel("nope"))
	shop, ok := g.Shop("sbx")
	require.True(t, ok)
	assert.Equal(t, "South Bronx", shop.Label)
	_, ok = g.Shop("nope")
	assert.False(t, ok)
}

func TestNavigateToOrderEffect(t *testing.T) {
	g := defaultGraph(t)

	root, err := g.RenderRoot()
	require.NoError(t, err)
	assert.Equal(t, "🛒 STK Supply", root.Embed.Title)

	out, err := g.Resolve(buttonByLabel(t, root, "Tha Bronx 3").CustomID, nil)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Screen: "store", ShopID: "tb3"}, out)

	store, err := g.Render(out.Screen, out.ShopID)
	require.NoError(t, err)
	assert.Equal(t, "🏪 Tha Bronx 3", store.Embed.Title)

	out, err = g.Resolve(buttonByLabel(t, store, "Money").CustomID, nil)
	require.NoError(t, err)
	money, err := g.Render(out.Screen, out.ShopID)
	require.NoError(t, err)

	out, err = g.Resolve(buttonByLabel(t, money, "Max Bank 990k").CustomID, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Effect)
	assert.Equal(t, Effect{
		Kind:     EffectOrder,
		ShopID:   "tb3",
		Shop:     "Tha Bronx 3",
		Category: "Money: Max Bank 990k",
	}, *out.Effect)
}

func TestBackReturnsToParent(t *testing.T) {
	g := defaultGraph(t)

	luxury, err := g.Render("luxury", "sbx")
	require.NoError(t, err)
	out, err := g.Resolve(buttonByLabel(t, luxury, "Back").CustomID, nil)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Screen: "store", ShopID: "sbx"}, out)

	store, err := g.Render("store", "sbx")
	require.NoError(t, err)
	out, err = g.Resolve(buttonByLabel(t, store, "Back").CustomID, nil)
	require.NoError(t, err)
	assert.Equal(t, "shops", out.Screen)
}

func TestSupportEffectFromRoot(t *testing.T) {
	g := defaultGraph(t)
	root, err := g.RenderRoot()
	require.NoError(t, err)

	out, err := g.Resolve(buttonByLabel(t, root, "Contact Support").CustomID, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Effect)
	assert.Equal(t, EffectSupport, out.Effect.Kind)
	assert.Empty(t, out.Effect.ShopID)
}

func TestSelectBuildsCategoryInOptionOrder(t *testing.T) {
	g := defaultGraph(t)
	weapons, err := g.Render("weapons", "tb3")
	require.NoError(t, err)
	require.NotNil(t, weapons.Rows[0].Select)
	sel := weapons.Rows[0].Select
	assert.Equal(t, 1, sel.MinValues)
	assert.Equal(t, 3, sel.MaxValues)

	out, err := g.Resolve(sel.CustomID, []string{"bag", "safe"})
	require.NoError(t, err)
	require.NotNil(t, out.Effect)
	assert.Equal(t, "Weapons: Safe, Bag", out.Effect.Category)
	assert.Equal(t, "Tha Bronx 3", out.Effect.Shop)

	_, err = g.Resolve(sel.CustomID, []string{"rocket"})
	assert.ErrorIs(t, err, ErrUnknownPayload)
	_, err = g.Resolve(sel.CustomID, nil)
	assert.ErrorIs(t, err, ErrUnknownPayload)
}

func TestRenderWrapsButtonsInRowsOfFive(t *testing.T) {
	g, err := Parse([]byte(`
root: r
screens:
  - id: r
    title: Root
    actions:
      - {label: a, effect: {kind: support}}
      - {label: b, effect: {kind: support}}
      - {label: c, effect: {kind: support}}
      - {label: d, effect: {kind: support}}
      - {label: e, effect: {kind: support}}
      - {label: f, effect: {kind: support}}
`))
	require.NoError(t, err)
	msg, err := g.RenderRoot()
	require.NoError(t, err)
	require.Len(t, msg.Rows, 2)
	assert.Len(t, msg.Rows[0].Buttons, 5)
	assert.Len(t, msg.Rows[1].Buttons, 1)
}

func TestResolveRejectsForeignPayloads(t *testing.T) {
	g := defaultGraph(t)
	for _, id := range []string{
		"ticket|close",
		"menu|act|store|tb3",
		"menu|act|store|tb3|x",
		"menu|act|store|tb3|99",
		"menu|act|ghost|tb3|0",
		"menu|act|store|nowhere|0",
		"menu|pick|store|tb3",
		"menu|zoom|store|tb3|0",
	} {
		t.Run(id, func(t *testing.T) {
			_, err := g.Resolve(id, nil)
			assert.ErrorIs(t, err, ErrUnknownPayload)
		})
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	p := Payload{Op: opAction, Screen: "money", Shop: "sbx", Index: 3}
	assert.Equal(t, "menu|act|money|sbx|3", p.Encode())
	got, err := ParsePayload(p.Encode())
	require.NoError(t, err)
	assert.Equal(t, p, got)

	noShop := Payload{Op: opPick, Screen: "weapons"}
	got, err = ParsePayload(noShop.Encode())
	require.NoError(t, err)
	assert.Equal(t, noShop, got)
	assert.True(t, IsMenuID(noShop.Encode()))
	assert.False(t, IsMenuID("order|close"))
}

func TestParseRejectsBrokenTrees(t *testing.T) {
	cases := map[string]string{
		"missing root": `
root: nope
screens:
  - {id: a, actions: [{label: x, effect: {kind: support}}]}`,
		"dangling parent": `
root: a
screens:
  - {id: a, actions: [{label: x, effect: {kind: support}}]}
  - {id: b, parent: ghost, actions: [{label: x, back: true}]}`,
		"cycle": `
root: a
screens:
  - {id: a, actions: [{label: x, effect: {kind: support}}]}
  - {id: b, parent: c, actions: [{label: x, back: true}]}
  - {id: c, parent: b, actions: [{label: x, back: true}]}`,
		"next to non-child": `
root: a
screens:
  - {id: a, actions: [{label: x, next: c}]}
  - {id: b, parent: a, actions: [{label: x, back: true}]}
  - {id: c, parent: b, actions: [{label: x, back: true}]}`,
		"back on root": `
root: a
screens:
  - {id: a, actions: [{label: x, back: true}]}`,
		"two targets": `
root: a
screens:
  - {id: a, actions: [{label: x, back: true, effect: {kind: support}}]}`,
		"order without category": `
root: a
screens:
  - {id: a, actions: [{label: x, effect: {kind: order}}]}`,
		"unknown shop": `
root: a
screens:
  - {id: a, actions: [{label: x, shop: zz, effect: {kind: support}}]}`,
		"select bounds": `
root: a
screens:
  - id: a
    select: {min: 2, max: 1, category: C, options: [{label: A, value: a}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestCustomIDsFitPlatformLimit(t *testing.T) {
	g := defaultGraph(t)
	for _, id := range g.Screens() {
		for _, shop := range []string{"", "tb3", "sbx"} {
			msg, err := g.Render(id, shop)
			require.NoError(t, err)
			for _, b := range msg.Buttons() {
				assert.LessOrEqual(t, len(b.CustomID), maxCustomID)
			}
		}
	}
}
