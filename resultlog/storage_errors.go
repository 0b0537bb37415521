package resultlog

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying run-log storage failures, so callers can
// branch with errors.Is instead of matching driver-specific message
// strings. The set covers what the two wired backends (filesystem and
// S3) actually produce.
var (
	ErrNotFound     = errors.New("resultlog: not found")
	ErrAccessDenied = errors.New("resultlog: access denied")
	ErrDiskFull     = errors.New("resultlog: no space left on device")
	ErrTimeout      = errors.New("resultlog: operation timed out")
	ErrThrottled    = errors.New("resultlog: rate limited")
	ErrAuth         = errors.New("resultlog: authentication failed")
	ErrNetwork      = errors.New("resultlog: network error")
)

// StorageError wraps a run-log storage failure with its classification
// and the operation/path that produced it. The underlying error stays
// in the chain for errors.As.
type StorageError struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return errors.Is(e.Kind, target) }

// WrapWriteError classifies a record/file write failure. Nil in, nil out.
func WrapWriteError(err error, path string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classify(err), Op: "write", Path: path, Err: err}
}

// WrapReadError classifies a record read failure. Nil in, nil out.
func WrapReadError(err error, path string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classify(err), Op: "read", Path: path, Err: err}
}

// WrapInitError classifies a dataset/store initialization failure.
// Nil in, nil out.
func WrapInitError(err error, dataset string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classify(err), Op: "init", Path: dataset, Err: err}
}

// classify maps err onto a sentinel, preferring typed checks over
// message sniffing. Auth/AccessDenied patterns are checked before the
// generic not-found ones: an S3 403 often arrives dressed as a missing
// key, and misclassifying it as ErrNotFound hides the real problem.
func classify(err error) error {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case matchesAny(msg, "nocredentialproviders", "invalidaccesskeyid", "signaturedoesnotmatch", "expiredtoken", "401", "unauthorized"):
		return ErrAuth
	case matchesAny(msg, "accessdenied", "access denied", "forbidden", "403", "permission denied", "eacces"):
		return ErrAccessDenied
	case matchesAny(msg, "no space left", "disk full", "enospc", "quota exceeded"):
		return ErrDiskFull
	case matchesAny(msg, "slowdown", "rate exceeded", "throttl", "429", "toomanyrequests"):
		return ErrThrottled
	case matchesAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ErrTimeout
	case matchesAny(msg, "connection refused", "no route to host", "network unreachable", "dial tcp", "i/o timeout"):
		return ErrNetwork
	case matchesAny(msg, "no such file", "does not exist", "not found", "enoent", "404", "nosuchkey"):
		return ErrNotFound
	}
	return errors.New("resultlog: storage error")
}

func matchesAny(msg string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(msg, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
