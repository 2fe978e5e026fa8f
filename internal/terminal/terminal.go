// Package terminal presents the login flow on a line-oriented terminal.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dhemutton/mobile-application/internal/auth"
)

// Terminal errors.
var (
	ErrInputClosed = errors.New("terminal input closed")
)

// Terminal implements auth.Presenter and auth.Navigator over a reader and a
// writer. Reads and writes are serialized.
type Terminal struct {
	mutex  sync.Mutex
	reader *bufio.Reader
	writer io.Writer
	screen string
}

var (
	_ auth.Presenter = (*Terminal)(nil)
	_ auth.Navigator = (*Terminal)(nil)
)

// New returns a Terminal reading from input and writing to output.
func New(input io.Reader, output io.Writer) *Terminal {
	return &Terminal{reader: bufio.NewReader(input), writer: output}
}

// Alert prints the alert and waits for Enter.
func (terminal *Terminal) Alert(ctx context.Context, alert auth.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	terminal.mutex.Lock()
	defer terminal.mutex.Unlock()
	if _, err := fmt.Fprintf(terminal.writer, "%s: %s\n[%s] ", alert.Title, alert.Message, alert.DismissLabel); err != nil {
		return fmt.Errorf("write alert: %w", err)
	}
	_, err := terminal.readLineLocked()
	return err
}

// Confirm prints the prompt and reads y or n. Anything else asks again.
func (terminal *Terminal) Confirm(ctx context.Context, prompt auth.Prompt) (bool, error) {
	terminal.mutex.Lock()
	defer terminal.mutex.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if _, err := fmt.Fprintf(terminal.writer, "%s\n%s\n%s (y) / %s (n): ", prompt.Title, prompt.Message, prompt.ConfirmLabel, prompt.CancelLabel); err != nil {
			return false, fmt.Errorf("write prompt: %w", err)
		}
		line, err := terminal.readLineLocked()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// Navigate records the screen and announces it.
func (terminal *Terminal) Navigate(ctx context.Context, screen string) error {
	terminal.mutex.Lock()
	defer terminal.mutex.Unlock()
	terminal.screen = screen
	if _, err := fmt.Fprintf(terminal.writer, "Signed in. Continue to %s.\n", screen); err != nil {
		return fmt.Errorf("write navigation: %w", err)
	}
	return nil
}

// Screen returns the last screen navigated to.
func (terminal *Terminal) Screen() string {
	terminal.mutex.Lock()
	defer terminal.mutex.Unlock()
	return terminal.screen
}

// Prompt writes message and returns the next trimmed input line.
func (terminal *Terminal) Prompt(message string) (string, error) {
	terminal.mutex.Lock()
	defer terminal.mutex.Unlock()
	if _, err := io.WriteString(terminal.writer, message); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	return terminal.readLineLocked()
}

// Printf writes a formatted line.
func (terminal *Terminal) Printf(format string, args ...any) {
	terminal.mutex.Lock()
	defer terminal.mutex.Unlock()
	_, _ = fmt.Fprintf(terminal.writer, format+"\n", args...)
}

func (terminal *Terminal) readLineLocked() (string, error) {
	line, err := terminal.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
