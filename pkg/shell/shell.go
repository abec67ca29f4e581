// Package shell bridges chat commands to the system shell, streaming merged
// stdout/stderr line by line as the process runs.
package shell

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// maxLineBytes caps a single emitted line; longer output is force-split so a
// runaway process cannot buffer unbounded memory.
const maxLineBytes = 4096

// Reader runs one shell command and exposes its output as a line channel.
// Stdout and stderr share a single pipe, so interleaving matches what a
// terminal would show.
type Reader struct {
	cmd  *exec.Cmd
	pipe *os.File

	lines chan string

	mu       sync.Mutex
	closed   bool
	exitCode int
	waitErr  error
	done     chan struct{}

	// quit closes with Close and releases pump sends, so an abandoned
	// reader can still drain the pipe and reap the process.
	quit chan struct{}
}

// Run starts command under the given shell binary with -c and begins
// streaming. The returned reader's Lines channel closes when the process
// exits or Close is called; ExitCode is valid after that.
func Run(ctx context.Context, shellPath, command string) (*Reader, error) {
	cmd := exec.Command(shellPath, "-c", command)
	prepareCommandForTreeControl(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}
	// The child holds its own copy of the write end; ours must close so the
	// read side sees EOF when the process tree exits.
	pw.Close()

	r := &Reader{
		cmd:      cmd,
		pipe:     pr,
		lines:    make(chan string, 16),
		exitCode: -1,
		done:     make(chan struct{}),
		quit:     make(chan struct{}),
	}

	go r.pump()
	go func() {
		select {
		case <-ctx.Done():
			r.Close()
		case <-r.done:
		}
	}()

	return r, nil
}

// Lines yields output lines in order. The channel closes when the process is
// finished and all output has been delivered.
func (r *Reader) Lines() <-chan string {
	return r.lines
}

// ExitCode reports the process exit status. Only meaningful after Lines has
// closed; -1 indicates the process was killed or has not finished.
func (r *Reader) ExitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode
}

// Close terminates the process tree early. Safe to call more than once and
// after normal completion.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.quit)
	return killCommandTree(r.cmd)
}

// pump reads the merged pipe, cuts it into lines, and records the exit code
// once the pipe drains.
func (r *Reader) pump() {
	defer close(r.lines)
	defer close(r.done)
	defer r.pipe.Close()

	var pending []byte
	delivering := true
	buf := make([]byte, 4096)
	for {
		n, err := r.pipe.Read(buf)
		if n > 0 && delivering {
			pending = append(pending, buf[:n]...)
			pending, delivering = r.emitLines(pending)
		}
		if err != nil {
			break
		}
	}
	if delivering && len(pending) > 0 {
		r.send(sanitizeLine(string(pending)))
	}

	waitErr := r.cmd.Wait()
	r.mu.Lock()
	r.waitErr = waitErr
	r.exitCode = r.cmd.ProcessState.ExitCode()
	r.mu.Unlock()
}

// emitLines sends every complete line in buf and returns the unterminated
// remainder. Oversized runs without a newline are force-split. The second
// result is false once the consumer has quit; the caller then reads the
// pipe to EOF without emitting.
func (r *Reader) emitLines(buf []byte) ([]byte, bool) {
	for {
		i := -1
		for j, b := range buf {
			if b == '\n' {
				i = j
				break
			}
		}
		if i < 0 {
			if len(buf) > maxLineBytes {
				if !r.send(sanitizeLine(string(buf[:maxLineBytes]))) {
					return nil, false
				}
				buf = buf[maxLineBytes:]
				continue
			}
			return buf, true
		}
		if !r.send(sanitizeLine(string(buf[:i]))) {
			return nil, false
		}
		buf = buf[i+1:]
	}
}

// send delivers one line unless the reader has been closed while the
// consumer stopped draining.
func (r *Reader) send(line string) bool {
	select {
	case r.lines <- line:
		return true
	case <-r.quit:
		return false
	}
}

// sanitizeLine strips the carriage return CRLF output leaves behind and
// replaces invalid UTF-8 so every line is safe to send to chat.
func sanitizeLine(line string) string {
	line = strings.TrimSuffix(line, "\r")
	return strings.ToValidUTF8(line, "�")
}
