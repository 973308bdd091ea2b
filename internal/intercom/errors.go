// ABOUTME: Error taxonomy for the intercom engine
// ABOUTME: Separates device faults, watchdog stalls, and bad configuration
package intercom

import (
	"errors"
	"fmt"
)

// ErrCaptureStalled is returned when a full watchdog interval passes
// without a single captured sample. The USB capture path needs a full
// reopen at that point, so the session fails and the supervisor
// rebuilds it.
var ErrCaptureStalled = errors.New("capture device stalled")

// ErrInvalidSettings wraps every settings validation failure.
var ErrInvalidSettings = errors.New("invalid intercom settings")

// DeviceError is a hardware open/read/write failure. One in-place
// recovery is attempted where the device supports it; a second failure
// ends the session.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
