package cache

import (
	"errors"
	"fmt"
)

// ErrNotFound is the cause carried by Ignorable errors for absent objects.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies tier failures so callers decide once how to degrade.
type ErrorKind int

const (
	// KindIgnorable is expected absence: converted to a miss or no-op, never logged as an error.
	KindIgnorable ErrorKind = iota + 1
	// KindRecoverable is a transient backend failure (network, auth, timeout, quota).
	KindRecoverable
)

func (k ErrorKind) String() string {
	switch k {
	case KindIgnorable:
		return "ignorable"
	case KindRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// Tier names used in errors, logs and metrics.
const (
	TierLocal    = "local"
	TierMetadata = "metadata"
	TierObject   = "object"
)

// TierError is returned by every remote tier adapter.
type TierError struct {
	Kind ErrorKind
	Tier string
	Op   string
	Key  string
	Err  error
}

func (e *TierError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s %q: %s", e.Tier, e.Op, e.Key, e.Kind)
	}
	return fmt.Sprintf("%s %s %q: %s: %v", e.Tier, e.Op, e.Key, e.Kind, e.Err)
}

func (e *TierError) Unwrap() error { return e.Err }

// Ignorable wraps err as an expected-absence failure.
func Ignorable(tier, op, key string, err error) error {
	if err == nil {
		err = ErrNotFound
	}
	return &TierError{Kind: KindIgnorable, Tier: tier, Op: op, Key: key, Err: err}
}

// Recoverable wraps err as a transient failure. A nil err yields nil.
func Recoverable(tier, op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &TierError{Kind: KindRecoverable, Tier: tier, Op: op, Key: key, Err: err}
}

// KindOf returns the classification of err. Unclassified non-nil errors are Recoverable.
func KindOf(err error) ErrorKind {
	if err == nil {
		return 0
	}
	var te *TierError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindRecoverable
}

func IsIgnorable(err error) bool { return KindOf(err) == KindIgnorable }

func IsRecoverable(err error) bool { return KindOf(err) == KindRecoverable }
