package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/R3E-Network/layout_service/internal/httputil"
)

// Terminal colors.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// Exit codes for layoutctl.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the service rejected the request
	ExitCommandError = 2 // bad arguments or local I/O
)

// ExitError carries an exit code alongside an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// usageError marks an argument problem.
func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf(format, args...)}
}

// localError wraps a failure that happened on this machine rather than in
// the service.
func localError(message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors answered by the
// service map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Color     bool
}

// CLIResponse is the JSON envelope printed in json mode.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// Success prints data. In text mode render produces the human form; a nil
// render prints data with %v.
func (f *OutputFormatter) Success(data any, render func(io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	if render != nil {
		render(f.Writer)
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Done prints a one-line confirmation.
func (f *OutputFormatter) Done(message string) {
	if f.Format == "json" {
		return
	}
	fmt.Fprintln(f.Writer, f.mark("✓", ColorGreen)+" "+message)
}

// Error reports err on the error writer.
func (f *OutputFormatter) Error(err error) {
	out := CLIError{Code: "error", Message: err.Error()}
	var apiErr *httputil.APIError
	if errors.As(err, &apiErr) {
		out.Message = apiErr.Message
		out.Status = apiErr.Status
		if apiErr.Code != "" {
			out.Code = apiErr.Code
		}
	} else if GetExitCode(err) == ExitCommandError {
		out.Code = "command_error"
	}

	if f.Format == "json" {
		_ = json.NewEncoder(f.ErrWriter).Encode(CLIResponse{Status: "error", Error: &out})
		return
	}
	msg := out.Message
	if out.Status != 0 {
		msg = fmt.Sprintf("%s (%d %s)", msg, out.Status, out.Code)
	}
	fmt.Fprintln(f.ErrWriter, f.mark("✗", ColorRed)+" "+msg)
}

func (f *OutputFormatter) mark(symbol, color string) string {
	if !f.Color {
		return symbol
	}
	return color + symbol + ColorReset
}

// ProgressBar renders batch export/import progress on a terminal line.
type ProgressBar struct {
	total   int
	current int
	width   int
	prefix  string
	mu      sync.Mutex
	writer  io.Writer
	color   bool
}

// NewProgressBar creates a progress bar writing to w.
func NewProgressBar(w io.Writer, total int, prefix string, color bool) *ProgressBar {
	return &ProgressBar{total: total, width: 30, prefix: prefix, writer: w, color: color}
}

// Increment advances the bar by one.
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.current < pb.total {
		pb.current++
	}
	pb.render()
}

// Finish terminates the progress line.
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	pb.current = pb.total
	pb.render()
	fmt.Fprintln(pb.writer)
}

func (pb *ProgressBar) render() {
	percent := 1.0
	if pb.total > 0 {
		percent = float64(pb.current) / float64(pb.total)
	}
	filled := int(float64(pb.width) * percent)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.width-filled)
	if pb.color {
		switch {
		case percent < 0.5:
			bar = ColorYellow + bar + ColorReset
		case percent < 1.0:
			bar = ColorCyan + bar + ColorReset
		default:
			bar = ColorGreen + bar + ColorReset
		}
	}
	fmt.Fprintf(pb.writer, "\r%s [%s] %d/%d", pb.prefix, bar, pb.current, pb.total)
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
