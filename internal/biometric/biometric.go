// Package biometric gates session resumption behind a device biometric
// check. Terminals rarely expose biometric hardware, so the default gate
// reports no hardware; platform integrations and tests supply their own.
package biometric

import (
	"context"
	"errors"
)

// Distinguishable failure causes, surfaced verbatim to the user.
var (
	ErrNoHardware   = errors.New("biometric: no hardware available")
	ErrNotEnrolled  = errors.New("biometric: no credentials enrolled")
	ErrPromptFailed = errors.New("biometric: prompt failed")
	ErrPromptDenied = errors.New("biometric: prompt denied")
)

// Gate is a device biometric check.
type Gate interface {
	// Available reports whether biometric hardware is present.
	Available() bool
	// Enrolled reports whether at least one credential is enrolled.
	Enrolled() bool
	// Authenticate runs the local prompt. It returns nil on success and
	// one of the sentinel errors otherwise.
	Authenticate(ctx context.Context, reason string) error
}

// Unsupported is the Gate for platforms without biometric support.
type Unsupported struct{}

var _ Gate = Unsupported{}

func (Unsupported) Available() bool { return false }
func (Unsupported) Enrolled() bool  { return false }

func (Unsupported) Authenticate(context.Context, string) error {
	return ErrNoHardware
}
