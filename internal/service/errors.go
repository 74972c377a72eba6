// Package service contains the business logic of the upload pipeline and of
// the payment split reconciliation flow.
package service

import (
	"errors"
	"fmt"
	"strings"

	"beatmarket/pkg/storage"
)

// Sentinel errors matched by the handlers with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidSignature       = errors.New("invalid webhook signature")
	ErrProvisioningInProgress = errors.New("payment setup already in progress for this producer")
	ErrOrderTerminal          = errors.New("order is already in a terminal state")
	ErrObjectExists           = storage.ErrObjectExists
)

// ValidationError is bad input caught before any network call. Its message is
// shown to the user verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransportError is a failed storage or gateway call. Target names the
// bucket/path or the gateway operation.
type TransportError struct {
	Op     string
	Target string
	// GatewayMessage is the message returned by the payment gateway, if any.
	GatewayMessage string
	Err            error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Target != "" {
		b.WriteString(" ")
		b.WriteString(e.Target)
	}
	b.WriteString(" failed")
	if e.GatewayMessage != "" {
		b.WriteString(": ")
		b.WriteString(e.GatewayMessage)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// InconsistentStateError means a gateway mutation succeeded but the matching
// database write did not. Each one needs manual reconciliation.
type InconsistentStateError struct {
	Op           string
	ProducerID   string
	GatewayCodes map[string]string
	Err          error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("%s for producer %s succeeded at the gateway (%v) but was not persisted: %v",
		e.Op, e.ProducerID, e.GatewayCodes, e.Err)
}

func (e *InconsistentStateError) Unwrap() error { return e.Err }

// AuthorizationError rejects a caller that may not perform an action.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}
