// Package domain holds the value types shared by every layer of the pickup
// client core: catalog items, basket and order lines, stored orders, merge
// conflicts, bootstrap steps and typed failures.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import domain; domain imports nothing internal.
//
// Key design constraints:
//   - Money and quantities are decimal.Decimal, never float64
//   - Values are treated as immutable once published in a snapshot; helpers
//     that "modify" a value return a copy
//   - All JSON tags use snake_case
package domain
