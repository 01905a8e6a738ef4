package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
)

// classify maps a go-github error onto the gitstore taxonomy. Anything not
// recognisably a remote rejection is a TransportError, including rate limits,
// timeouts and 5xx — those are the retryable class.
func classify(op, resource string, repo gitstore.RepositoryIdentity, err error) error {
	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return &gitstore.TransportError{Op: op, Err: err}
	}

	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return &gitstore.NotFoundError{Resource: resource}
		case http.StatusConflict:
			return &gitstore.ConflictError{Repo: repo}
		case http.StatusUnprocessableEntity:
			return &gitstore.ValidationError{
				Op:      op,
				Message: ghErr.Message,
				Details: fieldDetails(ghErr),
			}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &gitstore.AuthError{Message: ghErr.Message}
		}
		if ghErr.Response.StatusCode >= 500 {
			return &gitstore.TransportError{Op: op, Err: err}
		}
	}

	return &gitstore.TransportError{Op: op, Err: err}
}

// fieldDetails flattens the remote service's structured per-field errors
// into "resource.field: code" strings for the surfaced message.
func fieldDetails(ghErr *gogithub.ErrorResponse) []string {
	details := make([]string, 0, len(ghErr.Errors))
	for _, fe := range ghErr.Errors {
		switch {
		case fe.Message != "":
			details = append(details, fe.Message)
		case fe.Field != "":
			details = append(details, fmt.Sprintf("%s.%s: %s", fe.Resource, fe.Field, fe.Code))
		default:
			details = append(details, fe.Code)
		}
	}
	return details
}

// remoteMessage extracts the remote service's message when present.
func remoteMessage(err error) string {
	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Message
	}
	return err.Error()
}

// isStatus reports whether err is a remote rejection with the given HTTP status.
func isStatus(err error, status int) bool {
	var ghErr *gogithub.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == status
}

// isAlreadyExists detects the 422 the ref API returns when creating a branch
// that already exists.
func isAlreadyExists(err error) bool {
	var ghErr *gogithub.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return false
	}
	if ghErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	if strings.Contains(strings.ToLower(ghErr.Message), "already exists") {
		return true
	}
	for _, fe := range ghErr.Errors {
		if fe.Code == "already_exists" {
			return true
		}
	}
	return false
}
