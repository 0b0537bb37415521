package resultlog

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapWriteError_NilPassthrough(t *testing.T) {
	if err := WrapWriteError(nil, "x"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestClassify_Sentinels(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"enoent", errors.New("open /runs/x: no such file or directory"), ErrNotFound},
		{"s3 missing key", errors.New("NoSuchKey: the specified key does not exist"), ErrNotFound},
		{"eacces", errors.New("mkdir /runs: permission denied"), ErrAccessDenied},
		{"s3 403", errors.New("AccessDenied: status code 403"), ErrAccessDenied},
		{"disk full", errors.New("write /runs/x: no space left on device"), ErrDiskFull},
		{"throttled", errors.New("SlowDown: please reduce request rate"), ErrThrottled},
		{"expired token", errors.New("ExpiredToken: the provided token has expired"), ErrAuth},
		{"refused", errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrNetwork},
		{"deadline", errors.New("context deadline exceeded"), ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := WrapWriteError(tc.err, "some/path")
			if !errors.Is(wrapped, tc.want) {
				t.Errorf("classified as %v, want %v", wrapped, tc.want)
			}
		})
	}
}

func TestStorageError_MessageAndUnwrap(t *testing.T) {
	underlying := errors.New("open /runs/x: no such file or directory")
	wrapped := WrapReadError(underlying, "runs/x")

	if !errors.Is(wrapped, underlying) {
		t.Error("expected the underlying error to stay in the chain")
	}
	var se *StorageError
	if !errors.As(wrapped, &se) {
		t.Fatal("expected a *StorageError in the chain")
	}
	if se.Op != "read" || se.Path != "runs/x" {
		t.Errorf("op/path = %q/%q", se.Op, se.Path)
	}
	if !strings.Contains(wrapped.Error(), "runs/x") {
		t.Errorf("message should name the path: %q", wrapped.Error())
	}
}
