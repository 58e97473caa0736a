package app

import "errors"

var (
	// ErrUploadFailed indicates the object store rejected the upload; no
	// metadata was recorded.
	ErrUploadFailed = errors.New("failed to upload file")

	// ErrInfectedContent indicates the scanner flagged the upload and the
	// stored blob and its record were cleaned up.
	ErrInfectedContent = errors.New("uploaded file failed malware scan")

	// ErrInvalidCode covers both wrong and expired passcodes. The two cases
	// are deliberately indistinguishable to callers.
	ErrInvalidCode = errors.New("invalid or expired code")

	// ErrTooManySends is returned when the optional send throttle rejects a
	// passcode request.
	ErrTooManySends = errors.New("too many verification code requests")
)
