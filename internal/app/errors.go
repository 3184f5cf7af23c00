package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"payadmin/api/internal/upstream"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func errUnauthorized(message string) *DomainError {
	if message == "" {
		message = "Unauthorized"
	}
	return domainError(http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func errValidation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

func errNotFound(message string) *DomainError {
	if message == "" {
		message = "Not found"
	}
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

func errMalformedUpstream(message string) *DomainError {
	return domainError(http.StatusBadGateway, "MALFORMED_UPSTREAM", message, nil)
}

// fromUpstream converts an upstream rejection into the console's error
// taxonomy, preserving the upstream's message. Anything that is not an
// *upstream.Error is surfaced as a generic server error.
func fromUpstream(err error) *DomainError {
	var upErr *upstream.Error
	if !errors.As(err, &upErr) {
		return domainError(http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
	}

	switch {
	case upErr.StatusCode == http.StatusUnauthorized:
		return errUnauthorized(upErr.Message)
	case upErr.StatusCode == http.StatusNotFound:
		return errNotFound(upErr.Message)
	case upErr.StatusCode >= 400 && upErr.StatusCode < 500:
		upstreamRejections.WithLabelValues(strconv.Itoa(upErr.StatusCode)).Inc()
		return domainError(http.StatusBadRequest, "UPSTREAM_REJECTED", upErr.Message, nil)
	default:
		upstreamRejections.WithLabelValues(strconv.Itoa(upErr.StatusCode)).Inc()
		return domainError(http.StatusBadGateway, "UPSTREAM_REJECTED", upErr.Message, nil)
	}
}
