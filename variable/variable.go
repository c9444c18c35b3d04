// Package variable implements the debugger's typed, enumerated REPL
// settings: a value with a fixed set of possibilities, a text parser, a
// display form, and an on-change hook.
package variable

import (
	"fmt"
	"strings"
)

// Variable is a named setting of type T with a closed set of possible
// values. Parse and Format together define the text form the REPL's
// set/show commands use; OnChange, if set, runs after Value is assigned a
// new value via Set.
type Variable[T any] struct {
	Name        string
	Description string
	Possibilities []T

	value T

	// Parse converts a command-line token to a T, or returns an error.
	Parse func(text string) (T, error)

	// Format renders the current value for display (show, usage listings).
	Format func(T) string

	// OnChange runs after Set assigns a new value, receiving the previous
	// and new values.
	OnChange func(old, new T)
}

// Value returns the current value.
func (v *Variable[T]) Value() T { return v.value }

// Set assigns newValue, invoking OnChange if one is registered.
func (v *Variable[T]) Set(newValue T) {
	old := v.value
	v.value = newValue

	if v.OnChange != nil {
		v.OnChange(old, newValue)
	}
}

// Display renders the current value via Format, or fmt.Sprint if unset.
func (v *Variable[T]) Display() string {
	if v.Format != nil {
		return v.Format(v.value)
	}

	return fmt.Sprint(v.value)
}

// PossibilitiesText renders the variable's possibilities for usage text.
func (v *Variable[T]) PossibilitiesText() string {
	texts := make([]string, len(v.Possibilities))

	for i, p := range v.Possibilities {
		if v.Format != nil {
			texts[i] = v.Format(p)
		} else {
			texts[i] = fmt.Sprint(p)
		}
	}

	return strings.Join(texts, ", ")
}

// falseTokens is the explicit recognized-false set for boolean variables —
// resolving spec.md's Open Question about BooleanVariable.parse's looser
// Python fallback (any non-empty token other than "0"/"f" was true,
// including the word "false" itself once the case-insensitive True/False
// match failed to apply to already-lowercased input).
var falseTokens = map[string]bool{
	"0": true, "f": true, "false": true, "n": true, "no": true, "off": true,
}

var trueTokens = map[string]bool{
	"1": true, "t": true, "true": true, "y": true, "yes": true, "on": true,
}

// NewBool builds a boolean Variable whose Parse recognizes the explicit
// true/false token sets above, case-insensitively, and rejects anything
// else rather than falling back to Go's truthiness.
func NewBool(name, description string, initial bool, onChange func(old, new bool)) *Variable[bool] {
	return &Variable[bool]{
		Name:          name,
		Description:   description,
		Possibilities: []bool{true, false},
		value:         initial,
		Parse: func(text string) (bool, error) {
			lower := strings.ToLower(strings.TrimSpace(text))

			if trueTokens[lower] {
				return true, nil
			}

			if falseTokens[lower] {
				return false, nil
			}

			return false, fmt.Errorf("variable: %q is not a recognized boolean (true: %v, false: %v)", text, sortedKeys(trueTokens), sortedKeys(falseTokens))
		},
		Format: func(b bool) string {
			if b {
				return "True"
			}

			return "False"
		},
		OnChange: onChange,
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	return keys
}

// Table is the debugger's name → Variable lookup, exposed through the
// AnyVariable interface so set/show can operate without knowing T.
type Table struct {
	order []string
	byName map[string]AnyVariable
}

// AnyVariable erases a Variable[T]'s type parameter for table storage and
// the REPL's set/show commands.
type AnyVariable interface {
	VarName() string
	VarDescription() string
	VarDisplay() string
	VarPossibilitiesText() string
	// VarSet parses text and assigns it, or returns a parse error.
	VarSet(text string) error
}

func (v *Variable[T]) VarName() string        { return v.Name }
func (v *Variable[T]) VarDescription() string { return v.Description }
func (v *Variable[T]) VarDisplay() string     { return v.Display() }

func (v *Variable[T]) VarPossibilitiesText() string { return v.PossibilitiesText() }

func (v *Variable[T]) VarSet(text string) error {
	parsed, err := v.Parse(text)
	if err != nil {
		return err
	}

	v.Set(parsed)

	return nil
}

// NewTable returns an empty variable table.
func NewTable() *Table {
	return &Table{byName: make(map[string]AnyVariable)}
}

// Register adds v to the table under its own Name, preserving insertion
// order for Names/show-all listings.
func (t *Table) Register(v AnyVariable) {
	if _, exists := t.byName[v.VarName()]; !exists {
		t.order = append(t.order, v.VarName())
	}

	t.byName[v.VarName()] = v
}

// Lookup returns the variable registered under name, if any. The REPL's
// show/set commands call this — and only this — so an unknown name always
// reports absence consistently, rather than ever resolving through a
// package-level table by mistake.
func (t *Table) Lookup(name string) (AnyVariable, bool) {
	v, ok := t.byName[name]
	return v, ok
}

// Names returns registered variable names in registration order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}
