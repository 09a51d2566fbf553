// Package policy holds the capability checks applied before any task mutation
// or read becomes visible. Checks are pure functions of their inputs.
package policy

import "github.com/persistorai/tasktrail/internal/models"

// Authorize allows actor to act on a task owned by owner.
// Tasks are never shared, so only the owner is allowed.
func Authorize(actor, owner string) error {
	if actor == "" {
		return models.ErrMissingActor
	}

	if actor != owner {
		return models.ErrForbidden
	}

	return nil
}
