package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// ForcedApprover implements the Approver interface for forced (non-interactive)
// approval. It displays a countdown and automatically approves after the
// countdown, used when the --force flag is provided.
type ForcedApprover struct {
	out       io.Writer
	countdown time.Duration
}

// NewForcedApprover creates a new ForcedApprover.
func NewForcedApprover() pgdumprun.Approver {
	return &ForcedApprover{
		out:       os.Stderr,
		countdown: pgdumprun.DefaultPruneApprovalCountdown,
	}
}

// RequestApproval displays a countdown and automatically approves after it,
// unless the context is cancelled first.
func (a *ForcedApprover) RequestApproval(ctx context.Context, subject string) (bool, error) {
	fmt.Fprintf(a.out, "\nWARNING: about to %s\n", subject)

	for i := int(a.countdown.Seconds()); i > 0; i-- {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
			fmt.Fprintf(a.out, "\rProceeding in: %d seconds... (Press Ctrl+C to cancel)", i)
			time.Sleep(1 * time.Second)
		}
	}

	fmt.Fprintf(a.out, "\r✓ Proceeding...                                          \n")
	return true, nil
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ pgdumprun.Approver = (*ForcedApprover)(nil)
