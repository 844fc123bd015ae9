package pgdumprun

import "context"

// Approver handles user interaction for approval workflows, particularly for
// destructive operations like deleting old backup archives.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type a confirmation word
type Approver interface {
	// RequestApproval prompts for confirmation before a destructive operation.
	// The subject describes what is about to be destroyed.
	//
	// Returns:
	//   - bool: true if approved, false if denied
	//   - error: Any error that occurred during the approval process
	RequestApproval(ctx context.Context, subject string) (bool, error)
}
