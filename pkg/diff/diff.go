// Package diff computes the column actions that bring a live table in line
// with its declared schema
package diff

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/mizuchilabs/vegaorm/pkg/schema"
)

// ActionType represents the type of column change
type ActionType string

const (
	DropColumn      ActionType = "DROP_COLUMN"
	AddColumn       ActionType = "ADD_COLUMN"
	AlterColumnType ActionType = "ALTER_COLUMN_TYPE"
)

// Action represents a single column change
type Action struct {
	Type        ActionType
	Column      string
	Field       schema.Field // Target descriptor, zero for drops
	Description string       // Human-readable description
	Destructive bool         // Whether this change may lose data
}

// Diff compares the declared snapshot against the introspected one and
// returns the actions needed to go from introspected to declared. Both
// snapshots are expected to come without the id column.
func Diff(declared, introspected schema.Snapshot) []Action {
	var actions []Action

	// Dropped columns
	for name := range introspected {
		if _, exists := declared[name]; !exists {
			actions = append(actions, Action{
				Type:        DropColumn,
				Column:      name,
				Description: fmt.Sprintf("Drop column %q", name),
				Destructive: true,
			})
		}
	}

	for name, field := range declared {
		current, exists := introspected[name]
		switch {
		case !exists:
			actions = append(actions, Action{
				Type:        AddColumn,
				Column:      name,
				Field:       field,
				Description: fmt.Sprintf("Add column %q %s", name, field),
			})
		case current != field:
			actions = append(actions, Action{
				Type:        AlterColumnType,
				Column:      name,
				Field:       field,
				Description: fmt.Sprintf("Change column %q from %s to %s", name, current, field),
				Destructive: true,
			})
		}
	}

	sortActions(actions)
	return actions
}

// sortActions orders actions deterministically: drops, adds, then alters
func sortActions(actions []Action) {
	priority := map[ActionType]int{
		DropColumn:      1,
		AddColumn:       2,
		AlterColumnType: 3,
	}

	slices.SortStableFunc(actions, func(a, b Action) int {
		pa, pb := priority[a.Type], priority[b.Type]
		if pa != pb {
			return cmp.Compare(pa, pb)
		}
		return cmp.Compare(a.Column, b.Column)
	})
}

// HasDestructive returns true if any actions are destructive
func HasDestructive(actions []Action) bool {
	for _, a := range actions {
		if a.Destructive {
			return true
		}
	}
	return false
}

// Describe renders one line per action, as shown by the CLI
func Describe(actions []Action) string {
	if len(actions) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, a := range actions {
		marker := " "
		if a.Destructive {
			marker = "!"
		}
		fmt.Fprintf(&sb, "%s %s: %s\n", marker, a.Type, a.Description)
	}
	return sb.String()
}

// SortedKeys returns sorted keys from a map
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
