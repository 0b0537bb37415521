//go:build unix

package exec

import (
	"bytes"
	"context"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/erayyap/scriptbench/log"
)

// pollIntervalMs bounds each poll(2) wait at 100ms so the timeout check
// stays responsive even while both streams are idle.
const pollIntervalMs = 100

// streamAndWait multiplexes stdout and stderr with a single poll(2) loop
// via golang.org/x/sys/unix.
// It forwards complete lines to logger as they arrive and returns the
// full captured text for each stream once both are closed or ctx
// expires.
func streamAndWait(ctx context.Context, stdout, stderr io.ReadCloser, logger *log.Logger, source string) (string, string) {
	type pipe struct {
		f        *os.File
		buf      bytes.Buffer
		pending  bytes.Buffer
		stream   string
		open     bool
	}

	pipes := []*pipe{
		{f: stdout.(*os.File), open: true, stream: "stdout"},
		{f: stderr.(*os.File), open: true, stream: "stderr"},
	}

	readBuf := make([]byte, 4096)

	flushLines := func(p *pipe, final bool) {
		for {
			data := p.pending.Bytes()
			idx := bytes.IndexByte(data, '\n')
			if idx < 0 {
				if final && p.pending.Len() > 0 {
					logger.WithStream(source, p.stream).Info(p.pending.String(), nil)
					p.pending.Reset()
				}
				return
			}
			line := string(data[:idx])
			logger.WithStream(source, p.stream).Info(line, nil)
			p.pending.Next(idx + 1)
		}
	}

	for {
		openCount := 0
		pollFds := make([]unix.PollFd, 0, len(pipes))
		idxOf := make([]*pipe, 0, len(pipes))
		for _, p := range pipes {
			if p.open {
				openCount++
				pollFds = append(pollFds, unix.PollFd{Fd: int32(p.f.Fd()), Events: unix.POLLIN})
				idxOf = append(idxOf, p)
			}
		}
		if openCount == 0 {
			break
		}
		if ctx.Err() != nil {
			break
		}

		n, err := unix.Poll(pollFds, pollIntervalMs)
		if err != nil {
			// EINTR and similar are transient; anything else we treat as
			// "nothing to read this tick" and let the ctx check above
			// eventually terminate the loop.
			continue
		}
		if n == 0 {
			continue
		}

		for i, pfd := range pollFds {
			if pfd.Revents == 0 {
				continue
			}
			p := idxOf[i]
			nread, rerr := p.f.Read(readBuf)
			if nread > 0 {
				p.buf.Write(readBuf[:nread])
				p.pending.Write(readBuf[:nread])
				flushLines(p, false)
			}
			if rerr != nil {
				p.open = false
			}
		}
	}

	for _, p := range pipes {
		flushLines(p, true)
	}

	return pipes[0].buf.String(), pipes[1].buf.String()
}
