package videos

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CommandFactory builds the external process used for a conversion.
type CommandFactory func(ctx context.Context, binary string, args ...string) *exec.Cmd

// FFmpegTranscoder converts video streams to MP4 by piping them through ffmpeg.
type FFmpegTranscoder struct {
	Binary  string
	Args    []string
	Command CommandFactory
	Timeout time.Duration
}

// DefaultFFmpegArgs read from stdin and write fragmented MP4 to stdout.
var DefaultFFmpegArgs = []string{
	"-hide_banner", "-loglevel", "error",
	"-i", "pipe:0",
	"-c:v", "libx264", "-preset", "veryfast",
	"-c:a", "aac",
	"-movflags", "frag_keyframe+empty_moov",
	"-f", "mp4", "pipe:1",
}

// NewFFmpegTranscoder constructs a Transcoder that shells out to ffmpeg.
func NewFFmpegTranscoder(binary string, timeout time.Duration) *FFmpegTranscoder {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &FFmpegTranscoder{
		Binary:  binary,
		Args:    append([]string{}, DefaultFFmpegArgs...),
		Command: exec.CommandContext,
		Timeout: timeout,
	}
}

// ConvertToMP4 streams input into the conversion process and returns its output.
// Input is written and output read concurrently so neither side of the pipe stalls.
func (t *FFmpegTranscoder) ConvertToMP4(ctx context.Context, input io.Reader) ([]byte, error) {
	if t == nil {
		return nil, &ConversionError{Err: ErrTranscoderUnavailable}
	}
	command := t.Command
	if command == nil {
		command = exec.CommandContext
	}

	execCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := command(execCtx, t.Binary, t.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &ConversionError{Err: errors.Wrap(err, "open stdin")}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ConversionError{Err: errors.Wrap(err, "open stdout")}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &ConversionError{Err: errors.Wrapf(err, "start %s", t.Binary)}
	}

	var out bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		if _, err := io.Copy(stdin, input); err != nil && !isClosedPipe(err) {
			return errors.Wrap(err, "write input")
		}
		return nil
	})
	g.Go(func() error {
		if _, err := io.Copy(&out, stdout); err != nil {
			_ = cmd.Process.Kill()
			return errors.Wrap(err, "read output")
		}
		return nil
	})

	// Wait must not run before the pipes are drained.
	copyErr := g.Wait()
	waitErr := cmd.Wait()

	switch {
	case waitErr != nil:
		return nil, &ConversionError{Err: waitErr, Stderr: strings.TrimSpace(stderr.String())}
	case copyErr != nil:
		return nil, &ConversionError{Err: copyErr, Stderr: strings.TrimSpace(stderr.String())}
	case out.Len() == 0:
		return nil, &ConversionError{Err: ErrEmptyOutput, Stderr: strings.TrimSpace(stderr.String())}
	}

	return out.Bytes(), nil
}

// The process may exit before consuming all of its input; its exit status decides the outcome.
func isClosedPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
