package runner

import (
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/mattn/go-isatty"
)

// PTY allocation modes for command execution.
const (
	PTYAuto   = "auto"
	PTYAlways = "always"
	PTYNever  = "never"
)

// ValidPTYMode reports whether mode is a recognised PTY mode.
func ValidPTYMode(mode string) bool {
	switch mode {
	case PTYAuto, PTYAlways, PTYNever:
		return true
	}

	return false
}

// TerminalWriter reports whether w is backed by a terminal. Used to resolve
// PTYAuto: commands only get a pseudo-terminal when their output actually
// reaches one.
func TerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// startPTY launches cmd under a pseudo-terminal and streams its combined
// output to out. The returned wait function blocks until the process exits
// and the output copy drains.
func startPTY(cmd *exec.Cmd, out io.Writer) (wait func() error, err error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		// Read errors (EIO on Linux) are the normal end-of-stream signal
		// when the child side of the pty closes.
		_, _ = io.Copy(out, ptmx)
	}()

	return func() error {
		waitErr := cmd.Wait()
		_ = ptmx.Close()
		wg.Wait()

		return waitErr
	}, nil
}
