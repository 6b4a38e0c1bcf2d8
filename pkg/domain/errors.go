package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel failures for the credential and dispatch paths. Every error that
// crosses the resolver, store, or dispatcher boundary wraps one of these or
// one of the typed errors below.
var (
	ErrIntegrationNotFound      = errors.New("integration not found")
	ErrStaticCredentialNotFound = errors.New("static credential not found")
	ErrCredentialUnavailable    = errors.New("credential unavailable")
	ErrReauthorizationRequired  = errors.New("reauthorization required")
	ErrDecryption               = errors.New("decryption failed")
	ErrCorruptRecord            = errors.New("corrupt credential record")
	ErrUnknownNode              = errors.New("unknown node")
)

type FailureKind string

const (
	FailureKind_InvalidConfig           FailureKind = "invalid_config"
	FailureKind_CredentialUnavailable   FailureKind = "credential_unavailable"
	FailureKind_ReauthorizationRequired FailureKind = "reauthorization_required"
	FailureKind_Decryption              FailureKind = "decryption_error"
	FailureKind_Provider                FailureKind = "provider_error"
	FailureKind_Timeout                 FailureKind = "timeout"
	FailureKind_UnknownNode             FailureKind = "unknown_node"
	FailureKind_CorruptRecord           FailureKind = "corrupt_record"
)

// InvalidConfigError aggregates every missing required field of a node
// config, so the user fixes the form in one round trip.
type InvalidConfigError struct {
	NodeID        string
	MissingFields []string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config for node %s: missing required fields: %s", e.NodeID, strings.Join(e.MissingFields, ", "))
}

// ProviderError carries the upstream status and body verbatim. The upstream
// message is usually more specific than anything we could add.
type ProviderError struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s returned status %d: %s", e.Service, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider %s failed: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("provider %s failed", e.Service)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type TimeoutError struct {
	NodeID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution of node %s timed out", e.NodeID)
}

// Failure is the wire shape of a classified execution failure. Messages for
// decryption and corrupt-record failures deliberately leave out internals.
type Failure struct {
	Kind          FailureKind `json:"kind"`
	Message       string      `json:"message"`
	MissingFields []string    `json:"missing_fields,omitempty"`
	Service       string      `json:"service,omitempty"`
	StatusCode    int         `json:"status_code,omitempty"`
	UpstreamBody  string      `json:"upstream_body,omitempty"`
}

func (f Failure) Error() string {
	return f.Message
}

// FailureFromError maps any error returned by the dispatch path to its wire
// shape. Unrecognized errors become provider failures with the original
// message preserved for diagnostics.
func FailureFromError(err error) Failure {
	var invalidConfig *InvalidConfigError
	if errors.As(err, &invalidConfig) {
		return Failure{
			Kind:          FailureKind_InvalidConfig,
			Message:       invalidConfig.Error(),
			MissingFields: invalidConfig.MissingFields,
		}
	}

	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return Failure{
			Kind:    FailureKind_Timeout,
			Message: timeout.Error(),
		}
	}

	var provider *ProviderError
	if errors.As(err, &provider) {
		return Failure{
			Kind:         FailureKind_Provider,
			Message:      provider.Error(),
			Service:      provider.Service,
			StatusCode:   provider.StatusCode,
			UpstreamBody: provider.Body,
		}
	}

	switch {
	case errors.Is(err, ErrUnknownNode):
		return Failure{Kind: FailureKind_UnknownNode, Message: err.Error()}
	case errors.Is(err, ErrReauthorizationRequired):
		return Failure{Kind: FailureKind_ReauthorizationRequired, Message: err.Error()}
	case errors.Is(err, ErrCredentialUnavailable):
		return Failure{Kind: FailureKind_CredentialUnavailable, Message: err.Error()}
	case errors.Is(err, ErrDecryption):
		return Failure{Kind: FailureKind_Decryption, Message: "stored credential could not be read, try again or contact support"}
	case errors.Is(err, ErrCorruptRecord):
		return Failure{Kind: FailureKind_CorruptRecord, Message: "stored credential could not be read, try again or contact support"}
	}

	return Failure{Kind: FailureKind_Provider, Message: err.Error()}
}
