package action

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Envelope is the serialized form of an action.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type decoder func(payload []byte) (Action, error)

func decodeAs[T Action](payload []byte) (Action, error) {
	var v T
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

var decoders = map[string]decoder{
	NavigateTo{}.Kind():   decodeAs[NavigateTo],
	NavigateBack{}.Kind(): decodeAs[NavigateBack],
	OpenDrawer{}.Kind():   decodeAs[OpenDrawer],
	CloseDrawer{}.Kind():  decodeAs[CloseDrawer],

	Login{}.Kind():             decodeAs[Login],
	LoginWithProvider{}.Kind(): decodeAs[LoginWithProvider],
	Logout{}.Kind():            decodeAs[Logout],
	ContinueAsGuest{}.Kind():   decodeAs[ContinueAsGuest],
	LoginSucceeded{}.Kind():    decodeAs[LoginSucceeded],
	LoginFailed{}.Kind():       decodeAs[LoginFailed],
	ProfileLoaded{}.Kind():     decodeAs[ProfileLoaded],
	ProfileFailed{}.Kind():     decodeAs[ProfileFailed],
	SessionChanged{}.Kind():    decodeAs[SessionChanged],

	DeltaReceived{}.Kind(): decodeAs[DeltaReceived],
	CatalogLoaded{}.Kind(): decodeAs[CatalogLoaded],
	FeedFailed{}.Kind():    decodeAs[FeedFailed],
	SearchChanged{}.Kind(): decodeAs[SearchChanged],

	SelectItem{}.Kind():       decodeAs[SelectItem],
	UpdateQuantity{}.Kind():   decodeAs[UpdateQuantity],
	AddToBasket{}.Kind():      decodeAs[AddToBasket],
	RemoveFromBasket{}.Kind(): decodeAs[RemoveFromBasket],
	BasketSynced{}.Kind():     decodeAs[BasketSynced],
	RequestCheckout{}.Kind():  decodeAs[RequestCheckout],
	PersistFailed{}.Kind():    decodeAs[PersistFailed],

	ConflictsDetected{}.Kind(): decodeAs[ConflictsDetected],
	ResolveConflict{}.Kind():   decodeAs[ResolveConflict],
	ApplyMerge{}.Kind():        decodeAs[ApplyMerge],
	CancelMerge{}.Kind():       decodeAs[CancelMerge],

	OrderLoaded{}.Kind():      decodeAs[OrderLoaded],
	OrderLoadFailed{}.Kind():  decodeAs[OrderLoadFailed],
	OrdersUpdated{}.Kind():    decodeAs[OrdersUpdated],
	OrderPlaced{}.Kind():      decodeAs[OrderPlaced],
	OrderPlaceFailed{}.Kind(): decodeAs[OrderPlaceFailed],

	ShowSnackbar{}.Kind():  decodeAs[ShowSnackbar],
	HideSnackbar{}.Kind():  decodeAs[HideSnackbar],
	ShowDialog{}.Kind():    decodeAs[ShowDialog],
	HideDialog{}.Kind():    decodeAs[HideDialog],
	SetRefreshing{}.Kind(): decodeAs[SetRefreshing],
	Retry{}.Kind():         decodeAs[Retry],

	StepChanged{}.Kind(): decodeAs[StepChanged],
	AuthChecked{}.Kind(): decodeAs[AuthChecked],
}

// Kinds returns every known action kind, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(decoders))
	for k := range decoders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Encode serializes an action into an envelope.
func Encode(a Action) (Envelope, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", a.Kind(), err)
	}
	return Envelope{Kind: a.Kind(), Payload: payload}, nil
}

// Decode rebuilds an action from its kind and JSON payload. An empty
// payload decodes to the zero value of the action.
func Decode(kind string, payload []byte) (Action, error) {
	dec, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
	a, err := dec(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return a, nil
}

// DecodeEnvelope is Decode for an Envelope.
func DecodeEnvelope(e Envelope) (Action, error) {
	return Decode(e.Kind, e.Payload)
}
