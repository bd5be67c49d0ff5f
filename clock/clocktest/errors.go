package clocktest

import "errors"

var (
	// ErrExpectSleepTimeout is returned when no sleep arrives at the gate
	// within the gate timeout.
	ErrExpectSleepTimeout = errors.New("clocktest: timed out waiting for sleep")

	// ErrNoPendingSleep is returned when the rendezvous completed but no
	// duration was published. It indicates a broken handshake.
	ErrNoPendingSleep = errors.New("clocktest: rendezvous completed without a pending sleep")
)
