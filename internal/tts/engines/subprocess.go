package engines

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// maxOutputSize caps what a subprocess may write to stdout.
const maxOutputSize = 50 * 1024 * 1024

// runCommand runs name with stdin wired up before start and returns stdout.
// On timeout or cancellation the process gets an interrupt, then a kill
// after a short grace period.
func runCommand(ctx context.Context, timeout time.Duration, stdin io.Reader, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(name, args...) //nolint:gosec
	if stdin == nil {
		stdin = bytes.NewReader(nil)
	}
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w, stderr: %s", name, err, stderr.String())
		}

	case <-ctx.Done():
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			_ = cmd.Process.Kill()
			<-done
		}
		return nil, fmt.Errorf("%s timeout after %s: %w", name, timeout, ctx.Err())
	}

	out := stdout.Bytes()
	if len(out) == 0 {
		return nil, fmt.Errorf("%s produced no output, stderr: %s", name, stderr.String())
	}
	if len(out) > maxOutputSize {
		return nil, fmt.Errorf("%s output too large: %d bytes (max %d)", name, len(out), maxOutputSize)
	}
	return out, nil
}
