// Package ids provides the validated string identifier types shared across
// the flow runtime: ItemId, FlowId, Profile and AppName. Each is a thin
// wrapper over a string that has been checked against the identifier format
// the runtime requires for use as a map key and a filesystem path segment.
package ids

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// InvalidFmtError reports the first byte position in the input that breaks
// the `[A-Za-z_][A-Za-z0-9_]*` identifier grammar.
type InvalidFmtError struct {
	Kind      string
	Value     string
	ByteIndex int
	Char      rune
}

func (e *InvalidFmtError) Error() string {
	return fmt.Sprintf("invalid %s format %q: disallowed character %q at byte %d", e.Kind, e.Value, e.Char, e.ByteIndex)
}

func validate(kind, s string) error {
	if s == "" {
		return &InvalidFmtError{Kind: kind, Value: s, ByteIndex: 0, Char: 0}
	}
	for i, r := range s {
		isFirst := i == 0
		switch {
		case r == '_':
			continue
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			continue
		case r >= '0' && r <= '9' && !isFirst:
			continue
		default:
			return &InvalidFmtError{Kind: kind, Value: s, ByteIndex: i, Char: r}
		}
	}
	if !utf8.ValidString(s) {
		return &InvalidFmtError{Kind: kind, Value: s, ByteIndex: 0, Char: utf8.RuneError}
	}
	return nil
}

// ItemId uniquely identifies one node in a Flow graph.
type ItemId string

// NewItemId validates s and returns an ItemId, or an *InvalidFmtError.
func NewItemId(s string) (ItemId, error) {
	if err := validate("ItemId", s); err != nil {
		return "", err
	}
	return ItemId(s), nil
}

func (id ItemId) String() string { return string(id) }

// FlowId identifies one Flow (an Item DAG) within an application.
type FlowId string

// NewFlowId validates s and returns a FlowId.
func NewFlowId(s string) (FlowId, error) {
	if err := validate("FlowId", s); err != nil {
		return "", err
	}
	return FlowId(s), nil
}

func (id FlowId) String() string { return string(id) }

// Profile names one environment instance of an application (dev, prod, ...).
type Profile string

// NewProfile validates s and returns a Profile.
func NewProfile(s string) (Profile, error) {
	if err := validate("Profile", s); err != nil {
		return "", err
	}
	return Profile(s), nil
}

func (p Profile) String() string { return string(p) }

// AppName identifies the application a workspace belongs to.
type AppName string

// NewAppName validates s and returns an AppName.
func NewAppName(s string) (AppName, error) {
	if err := validate("AppName", s); err != nil {
		return "", err
	}
	return AppName(s), nil
}

func (a AppName) String() string { return string(a) }

// RunId identifies one execution run of a Flow (one CmdExecution), the way
// the teacher's auth/auth.go stamps a session with uuid.New().String(). It
// carries no identifier-grammar restriction since the runtime generates it,
// never a user.
type RunId string

// NewRunId generates a fresh, random RunId.
func NewRunId() RunId {
	return RunId(uuid.New().String())
}

func (id RunId) String() string { return string(id) }
