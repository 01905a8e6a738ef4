package gitstore

import (
	"fmt"
	"strings"
)

// TransportError wraps a network failure, timeout or remote 5xx. These are
// the only errors worth retrying; callers classify with errors.As.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError is returned when a repository, branch or commit is absent
// (remote 404). Fatal on read paths.
type NotFoundError struct {
	Resource string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ConflictError is returned on a remote 409 when reading the head of a
// repository that has no commits yet. The remediation differs from every
// other failure: the repository needs an initial commit before the
// object-graph API can serve reads.
type ConflictError struct {
	Repo RepositoryIdentity
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("repository %s is empty (no commits yet); initialize it with a first commit", e.Repo)
}

// ValidationError is returned on a remote 422: a malformed tree, blob or
// commit payload. Details carries the remote service's per-field errors.
type ValidationError struct {
	Op      string
	Message string
	Details []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, strings.Join(e.Details, "; "))
}

// AuthError is returned when the credential is rejected outright by the
// introspection endpoint.
type AuthError struct {
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return "credential rejected: " + e.Message
}
