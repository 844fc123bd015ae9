package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It prompts the user to type "yes" before a
// destructive operation proceeds.
type InteractiveApprover struct {
	in  io.Reader
	out io.Writer
}

// NewInteractiveApprover creates a new InteractiveApprover reading from stdin.
func NewInteractiveApprover() pgdumprun.Approver {
	return &InteractiveApprover{in: os.Stdin, out: os.Stderr}
}

// RequestApproval prompts the user to confirm the described action.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, subject string) (bool, error) {
	fmt.Fprintf(a.out, "\n⚠️  WARNING: about to %s\n", subject)
	fmt.Fprint(a.out, "\nTo confirm, type 'yes' and press Enter: ")

	// Read user input with context cancellation support
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(a.in)
		input, err := reader.ReadString('\n')
		if err != nil {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if strings.EqualFold(input, "yes") {
			fmt.Fprintln(a.out, "✓ Confirmed.")
			return true, nil
		}
		fmt.Fprintln(a.out, "✗ Not confirmed. Operation cancelled.")
		return false, nil
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ pgdumprun.Approver = (*InteractiveApprover)(nil)
