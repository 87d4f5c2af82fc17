package device

import "errors"

// ErrAdmissionRejected is returned by Submit when the admission queue is
// full. The producer is expected to retry or back off; this is a normal,
// recoverable signal, not a fault.
var ErrAdmissionRejected = errors.New("admission queue full")

// ErrBackendInitFailed wraps a backend's Init failure. Fatal to the device:
// Construct returns it and never hands back a partially built Device.
var ErrBackendInitFailed = errors.New("backend init failed")

// ErrBackendRunFailed wraps a backend's Run failure. Fatal in this
// revision: the device stops accepting new work and surfaces the error to
// whoever is waiting on it (see Device.Err).
var ErrBackendRunFailed = errors.New("backend run failed")

// ErrInputSelectReserved is returned when InputSelectReserved is configured.
// That mode is not implemented in this revision; it exists only so
// configuration that names it fails loudly instead of silently falling
// back to InputSelectNormal.
var ErrInputSelectReserved = errors.New("input select: reserved mode is not supported")

// ErrNotRunning is returned by Submit when the device is not in the
// Running state.
var ErrNotRunning = errors.New("device is not running")

type wrapped struct {
	sentinel error
	detail   string
}

func (e *wrapped) Error() string {
	if e.detail == "" {
		return e.sentinel.Error()
	}
	return e.sentinel.Error() + ": " + e.detail
}

func (e *wrapped) Unwrap() error {
	return e.sentinel
}

func wrapErr(sentinel error, detail string) error {
	return &wrapped{sentinel: sentinel, detail: detail}
}
