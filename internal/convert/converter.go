package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// ProbeTimeout bounds the converter capability check.
const ProbeTimeout = 10 * time.Second

// DefaultConverter is the command used when no converter path is configured.
const DefaultConverter = "magick"

// Probe runs "<converter> -version" and returns the first line it printed.
func Probe(ctx context.Context, converter string) (string, error) {
	if strings.TrimSpace(converter) == "" {
		return "", errors.New("converter path not specified")
	}

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, converter, "-version")
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("converter check timed out after %v", ProbeTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("converter returned an error (code %d)", exitErr.ExitCode())
		}
		return "", fmt.Errorf("converter %q not usable: %w", converter, err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line), nil
}

// runConverter extracts the first layer of src into out.
func runConverter(ctx context.Context, converter, src, out string) ([]byte, Reason, error) {
	cmd := exec.CommandContext(ctx, converter, src+"[0]", out)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if err == nil {
		return buf.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return buf.Bytes(), ReasonConverterFailed, fmt.Errorf("exit code %d", exitErr.ExitCode())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return nil, ReasonConverterMissing, err
	default:
		return buf.Bytes(), ReasonConverterFailed, err
	}
}
