package state

import (
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/ui"
)

// SurfaceError reports es to the user according to its type:
//
//	NETWORK_FAILURE          error dialog, with retry of target if retryable
//	AUTHENTICATION_REQUIRED  snackbar and the login screen
//	VALIDATION_FAILURE       inline, next to the offending field
//	NOT_FOUND, STORAGE       snackbar
//
// Nothing else in s is reset.
func SurfaceError(s Snapshot, es domain.ErrorState, target ui.RetryTarget) Snapshot {
	switch es.Type {
	case domain.ErrNetworkFailure:
		s.UI.Dialog = ui.ErrorDialog(es, target)
	case domain.ErrAuthenticationRequired:
		s.UI.Snackbar = errorSnackbar(es)
		s.Meta.RequiresLogin = true
		s.Navigation.DrawerOpen = false
		s.Navigation.Stack = push(s.Navigation.Stack, ui.ScreenLogin)
	case domain.ErrValidationFailure:
		s.UI.Inline = &es
	default:
		s.UI.Snackbar = errorSnackbar(es)
	}
	return s
}

func errorSnackbar(es domain.ErrorState) ui.Snackbar {
	return ui.Snackbar{Message: es.Message, Kind: ui.SnackbarError, Error: &es}
}
