package moderation

import "fmt"

// canApprove checks if an item in the given status can be approved.
func canApprove(status ContentStatus) error {
	switch status {
	case StatusPending:
		return nil
	case StatusApproved:
		return fmt.Errorf("%w: content is already approved (status: %s)", ErrInvalidTransition, status)
	case StatusPublished:
		return fmt.Errorf("%w: content has already been published (status: %s)", ErrInvalidTransition, status)
	case StatusRejected:
		return fmt.Errorf("%w: rejected content must be edited before approval (status: %s)", ErrInvalidTransition, status)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
}

// canReject checks if an item in the given status can be rejected.
func canReject(status ContentStatus) error {
	switch status {
	case StatusPending:
		return nil
	case StatusRejected:
		return fmt.Errorf("%w: content is already rejected (status: %s)", ErrInvalidTransition, status)
	case StatusApproved, StatusPublished:
		return fmt.Errorf("%w: content has already been approved (status: %s)", ErrInvalidTransition, status)
	default:
		return fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
}
