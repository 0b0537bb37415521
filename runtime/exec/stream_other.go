//go:build !unix

package exec

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/erayyap/scriptbench/log"
)

// streamAndWait is the non-POSIX fallback: one goroutine per pipe using
// blocking reads, with ctx's deadline (already armed by the caller)
// standing in for the poll loop's responsive timeout check.
func streamAndWait(ctx context.Context, stdout, stderr io.ReadCloser, logger *log.Logger, source string) (string, string) {
	var wg sync.WaitGroup
	pump := func(r io.Reader, stream string) string {
		var out strings.Builder
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			out.WriteString(line)
			out.WriteByte('\n')
			logger.WithStream(source, stream).Info(line, nil)
		}
		return out.String()
	}

	var stdoutText, stderrText string
	wg.Add(2)
	go func() { defer wg.Done(); stdoutText = pump(stdout, "stdout") }()
	go func() { defer wg.Done(); stderrText = pump(stderr, "stderr") }()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-ctx.Done():
		// The caller's cmd.Cancel/WaitDelay will terminate the process,
		// which closes the pipes and unblocks the scanners; wait for
		// them so the captured text is complete before returning.
		<-done
	}

	return stdoutText, stderrText
}
