package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// ScanErrorType classifies per-file scan failures. All of these are
// recoverable at the batch level: the file is reported and the scan
// continues.
type ScanErrorType string

const (
	ErrTypePermissionDenied ScanErrorType = "permission_denied"
	ErrTypeNotFound         ScanErrorType = "not_found"
	ErrTypeSymlinkLoop      ScanErrorType = "symlink_loop"
	ErrTypeReadError        ScanErrorType = "read_error"
	ErrTypeHashError        ScanErrorType = "hash_error"
	ErrTypeUnknown          ScanErrorType = "unknown"
)

// ErrHashMismatch is reported when a file's content no longer matches the
// hash the caller supplied, meaning the file changed underneath the scan.
var ErrHashMismatch = errors.New("content hash mismatch")

// ErrScanInProgress is returned when a scan is requested while another scan
// of the same project is active. Concurrent scans are serialized to keep
// aggregate counts and dominant-variant decisions deterministic.
var ErrScanInProgress = errors.New("a scan is already in progress for this project")

// ScanError is one per-file failure. Detector is set when the failure came
// from a specific detector rather than the file itself.
type ScanError struct {
	File     string        `json:"file"`
	Detector string        `json:"detector,omitempty"`
	Type     ScanErrorType `json:"type"`
	Err      error         `json:"-"`
	Message  string        `json:"message"`
}

func (e ScanError) Error() string {
	if e.Detector != "" {
		return fmt.Sprintf("%s: detector %s: %s: %v", e.File, e.Detector, e.Type, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.File, e.Type, e.Err)
}

func (e ScanError) Unwrap() error { return e.Err }

// newScanError classifies err into the scan error taxonomy.
func newScanError(file, detector string, err error) ScanError {
	return ScanError{
		File:     file,
		Detector: detector,
		Type:     classify(err),
		Err:      err,
		Message:  err.Error(),
	}
}

// classify maps an underlying error to its taxonomy type.
func classify(err error) ScanErrorType {
	switch {
	case errors.Is(err, os.ErrPermission):
		return ErrTypePermissionDenied
	case errors.Is(err, os.ErrNotExist):
		return ErrTypeNotFound
	case errors.Is(err, syscall.ELOOP):
		return ErrTypeSymlinkLoop
	case errors.Is(err, ErrHashMismatch):
		return ErrTypeHashError
	default:
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return ErrTypeReadError
		}
		return ErrTypeUnknown
	}
}
