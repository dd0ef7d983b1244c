// Package ui holds the presentation-facing variants carried in the state
// snapshot: screens, dialogs, snackbars and retry targets.
package ui

import (
	"github.com/roach88/pickup/internal/domain"
)

// Screen identifies a navigation destination.
type Screen string

const (
	ScreenLogin      Screen = "login"
	ScreenCatalog    Screen = "catalog"
	ScreenItemDetail Screen = "item_detail"
	ScreenBasket     Screen = "basket"
	ScreenOrders     Screen = "orders"
	ScreenMerge      Screen = "merge"
	ScreenProfile    Screen = "profile"
)

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	switch s {
	case ScreenLogin, ScreenCatalog, ScreenItemDetail, ScreenBasket, ScreenOrders, ScreenMerge, ScreenProfile:
		return true
	default:
		return false
	}
}

// RequiresAuth reports whether the screen is only reachable when logged in.
func (s Screen) RequiresAuth() bool {
	switch s {
	case ScreenOrders, ScreenProfile, ScreenMerge:
		return true
	default:
		return false
	}
}

// RetryTarget names the operation an error dialog's retry button re-runs.
type RetryTarget string

const (
	RetryNone     RetryTarget = ""
	RetryCatalog  RetryTarget = "catalog"
	RetryOrders   RetryTarget = "orders"
	RetryCheckout RetryTarget = "checkout"
	RetryProfile  RetryTarget = "profile"
)

// DialogKind tags the Dialog variant.
type DialogKind string

const (
	DialogNone          DialogKind = ""
	DialogInfo          DialogKind = "info"
	DialogConfirm       DialogKind = "confirm"
	DialogError         DialogKind = "error"
	DialogMergeDecision DialogKind = "merge_decision"
)

// Dialog is the modal currently shown. The zero value is no dialog.
type Dialog struct {
	Kind    DialogKind         `json:"kind,omitempty"`
	Title   string             `json:"title,omitempty"`
	Message string             `json:"message,omitempty"`
	Error   *domain.ErrorState `json:"error,omitempty"`
	Retry   RetryTarget        `json:"retry,omitempty"`
}

// Visible reports whether a dialog is shown.
func (d Dialog) Visible() bool {
	return d.Kind != DialogNone
}

// InfoDialog builds a plain informational dialog.
func InfoDialog(title, message string) Dialog {
	return Dialog{Kind: DialogInfo, Title: title, Message: message}
}

// ErrorDialog builds a dismissible error dialog. A retryable error offers
// retry of target.
func ErrorDialog(es domain.ErrorState, target RetryTarget) Dialog {
	d := Dialog{Kind: DialogError, Title: "Something went wrong", Message: es.Message, Error: &es}
	if es.Retryable {
		d.Retry = target
	}
	return d
}

// MergeDialog asks the user to decide the pending merge conflicts.
func MergeDialog(pending int) Dialog {
	msg := "Your basket differs from the order you already placed for this pickup."
	if pending == 1 {
		msg = "One item in your basket differs from the order you already placed for this pickup."
	}
	return Dialog{Kind: DialogMergeDecision, Title: "Resolve basket changes", Message: msg}
}

// SnackbarKind tags the snackbar style.
type SnackbarKind string

const (
	SnackbarInfo  SnackbarKind = "info"
	SnackbarError SnackbarKind = "error"
)

// Snackbar is a transient message. The zero value is no snackbar.
type Snackbar struct {
	Message string             `json:"message,omitempty"`
	Kind    SnackbarKind       `json:"kind,omitempty"`
	Error   *domain.ErrorState `json:"error,omitempty"`
}

// Visible reports whether a snackbar is shown.
func (s Snackbar) Visible() bool {
	return s.Message != ""
}
