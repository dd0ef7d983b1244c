package state

import (
	"github.com/roach88/pickup/internal/ui"
)

func navigateTo(s Snapshot, screen ui.Screen) Snapshot {
	if !screen.Valid() {
		return s
	}
	s.Navigation.DrawerOpen = false
	if screen.RequiresAuth() && !s.LoggedIn() {
		screen = ui.ScreenLogin
	}
	s.Navigation.Stack = push(s.Navigation.Stack, screen)
	return s
}

// navigateBack closes an open drawer first. The root screen is never
// popped.
func navigateBack(s Snapshot) Snapshot {
	if s.Navigation.DrawerOpen {
		s.Navigation.DrawerOpen = false
		return s
	}
	if len(s.Navigation.Stack) <= 1 {
		return s
	}
	s.Navigation.Stack = append([]ui.Screen(nil), s.Navigation.Stack[:len(s.Navigation.Stack)-1]...)
	return s
}

// push returns a new stack with screen on top. Pushing the current top is a
// no-op.
func push(stack []ui.Screen, screen ui.Screen) []ui.Screen {
	if len(stack) > 0 && stack[len(stack)-1] == screen {
		return stack
	}
	out := make([]ui.Screen, len(stack), len(stack)+1)
	copy(out, stack)
	return append(out, screen)
}

// without returns a new stack lacking every occurrence of screen, falling
// back to the catalog when nothing is left.
func without(stack []ui.Screen, screen ui.Screen) []ui.Screen {
	out := make([]ui.Screen, 0, len(stack))
	for _, sc := range stack {
		if sc != screen {
			out = append(out, sc)
		}
	}
	if len(out) == 0 {
		out = append(out, ui.ScreenCatalog)
	}
	return out
}
