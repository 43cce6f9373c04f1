package videos

import "errors"

var (
	// ErrTranscoderUnavailable indicates no transcoder is configured.
	ErrTranscoderUnavailable = errors.New("transcoder unavailable")
	// ErrEmptyOutput indicates the conversion process exited cleanly without producing output.
	ErrEmptyOutput = errors.New("conversion produced no output")
)

// ConversionError reports a failed transcode, carrying the process's diagnostic output.
type ConversionError struct {
	Err    error
	Stderr string
}

func (e *ConversionError) Error() string {
	msg := "convert to mp4: " + e.Err.Error()
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap exposes the underlying failure.
func (e *ConversionError) Unwrap() error {
	return e.Err
}
