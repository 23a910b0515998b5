package executor

import "errors"

// MissingDependencyError marks a configuration problem: the action needs a
// collaborator that was never injected. The failure-handling policy treats it
// like any other execution error, but operators can tell them apart.
type MissingDependencyError struct {
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return e.Dependency + " not configured"
}

func IsMissingDependency(err error) bool {
	var missing *MissingDependencyError
	return errors.As(err, &missing)
}
