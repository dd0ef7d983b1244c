package action

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/ui"
)

func TestDecode_KnownKinds(t *testing.T) {
	tests := []struct {
		kind    string
		payload string
		want    Action
	}{
		{"navigation.navigate_to", `{"screen":"basket"}`, NavigateTo{Screen: ui.ScreenBasket}},
		{"navigation.navigate_back", ``, NavigateBack{}},
		{"basket.remove", `{"product_id":"p1"}`, RemoveFromBasket{ProductID: "p1"}},
		{"merge.resolve_conflict", `{"conflict_id":"p2","resolution":"KEEP_EXISTING"}`,
			ResolveConflict{ConflictID: "p2", Resolution: domain.ResolutionKeepExisting}},
		{"ui.set_refreshing", `{"refreshing":true}`, SetRefreshing{Refreshing: true}},
		{"meta.auth_checked", `null`, AuthChecked{}},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := Decode(tt.kind, []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.kind, got.Kind())
		})
	}
}

func TestDecode_DecimalFromNumberOrString(t *testing.T) {
	a, err := Decode("basket.update_quantity", []byte(`{"product_id":"p1","amount":1.25}`))
	require.NoError(t, err)
	assert.Equal(t, "1.25", a.(UpdateQuantity).Amount.String())

	a, err = Decode("basket.add", []byte(`{"product_id":"p1","quantity":"3"}`))
	require.NoError(t, err)
	assert.True(t, a.(AddToBasket).Quantity.Equal(decimal.NewFromInt(3)))
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode("basket.teleport", nil)
	assert.ErrorContains(t, err, "unknown action kind")

	_, err = Decode("basket.remove", []byte(`{"product_id":`))
	assert.ErrorContains(t, err, "decode basket.remove")
}

func TestEncode_DeltaEnvelope(t *testing.T) {
	in := DeltaReceived{Delta: catalog.Delta{Mode: catalog.ModeRemoved, Item: domain.Item{ID: "a"}}}

	env, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "catalog.delta_received", env.Kind)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var back Envelope
	require.NoError(t, json.Unmarshal(raw, &back))
	out, err := DecodeEnvelope(back)
	require.NoError(t, err)

	got := out.(DeltaReceived)
	assert.Equal(t, catalog.ModeRemoved, got.Delta.Mode)
	assert.Equal(t, "a", got.Delta.Item.ID)
}

func TestEncode_LoginOmitsPassword(t *testing.T) {
	env, err := Encode(Login{Email: "a@b.c", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotContains(t, string(env.Payload), "hunter2")
}

func TestKindsCoverGroups(t *testing.T) {
	groups := map[string]bool{}
	for _, k := range Kinds() {
		a, err := Decode(k, nil)
		require.NoError(t, err, k)
		groups[Group(a)] = true
	}
	for _, g := range []string{"navigation", "user", "catalog", "basket", "merge", "order", "ui", "meta"} {
		assert.True(t, groups[g], g)
	}
}
