// Package dispatch executes a single node invocation end to end: look up the
// definition, validate config against its declared schema, build a fresh
// execution context, run the node, and classify whatever comes back.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/nodeloom/nodeloom/internal/httpx"
	"github.com/nodeloom/nodeloom/pkg/domain"
)

const defaultNodeTimeout = 60 * time.Second

// ExecutionRequest is one node invocation as received from the API surface.
type ExecutionRequest struct {
	NodeID string            `json:"node_id"`
	UserID string            `json:"user_id"`
	Config domain.NodeConfig `json:"config"`
	Data   any               `json:"data"`
}

// ExecutionResult carries the node's output verbatim on success or a
// classified failure otherwise. Exactly one of Output and Failure is set.
type ExecutionResult struct {
	ExecutionID string          `json:"execution_id"`
	NodeID      string          `json:"node_id"`
	Success     bool            `json:"success"`
	Output      any             `json:"output,omitempty"`
	Failure     *domain.Failure `json:"failure,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
}

type DispatcherDependencies struct {
	Registry   *domain.NodeRegistry
	Resolver   domain.CredentialResolver
	HTTPClient *httpx.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

type Dispatcher struct {
	registry   *domain.NodeRegistry
	resolver   domain.CredentialResolver
	httpClient *httpx.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

func NewDispatcher(deps DispatcherDependencies) *Dispatcher {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultNodeTimeout
	}

	return &Dispatcher{
		registry:   deps.Registry,
		resolver:   deps.Resolver,
		httpClient: deps.HTTPClient,
		timeout:    timeout,
		logger:     deps.Logger,
	}
}

// Dispatch never returns a Go error for node-level problems; those are
// classified into the result's Failure. The returned error is reserved for
// dispatcher-internal breakage.
func (d *Dispatcher) Dispatch(ctx context.Context, req ExecutionRequest) (ExecutionResult, error) {
	executionID := xid.New().String()
	started := time.Now()

	result := ExecutionResult{
		ExecutionID: executionID,
		NodeID:      req.NodeID,
	}

	definition, ok := d.registry.Get(req.NodeID)
	if !ok {
		return d.failed(result, started, fmt.Errorf("%w: %s", domain.ErrUnknownNode, req.NodeID)), nil
	}

	config, err := d.prepareConfig(definition, req.Config)
	if err != nil {
		return d.failed(result, started, err), nil
	}

	logger := d.logger.With().
		Str("execution_id", executionID).
		Str("node_id", req.NodeID).
		Str("user_id", req.UserID).
		Logger()

	ec := &domain.ExecutionContext{
		ExecutionID: executionID,
		UserID:      req.UserID,
		NodeID:      req.NodeID,
		Credentials: domain.NewExecutionCredentials(req.UserID, d.resolver),
		HTTP:        d.httpClient.ForService(definition.Category),
		Logger:      logger,
	}

	nodeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	output, err := d.invoke(nodeCtx, definition, domain.ExecutionInput{Data: req.Data, Config: config}, ec)
	if err != nil {
		if nodeCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			err = &domain.TimeoutError{NodeID: req.NodeID}
		}

		logger.Warn().Err(err).Msg("Node execution failed")
		return d.failed(result, started, err), nil
	}

	logger.Debug().Dur("duration", time.Since(started)).Msg("Node execution succeeded")

	result.Success = true
	result.Output = output
	result.DurationMS = time.Since(started).Milliseconds()

	return result, nil
}

// invoke contains a panicking node so one bad execution cannot take the
// process down.
func (d *Dispatcher) invoke(ctx context.Context, definition domain.NodeDefinition, in domain.ExecutionInput, ec *domain.ExecutionContext) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ProviderError{
				Service: definition.Category,
				Err:     fmt.Errorf("node %s panicked: %v", definition.ID, r),
			}
		}
	}()

	return definition.Execute(ctx, in, ec)
}

// prepareConfig applies declared defaults and reports every missing required
// field at once instead of failing on the first one.
func (d *Dispatcher) prepareConfig(definition domain.NodeDefinition, config domain.NodeConfig) (domain.NodeConfig, error) {
	prepared := make(domain.NodeConfig, len(config))
	for key, value := range config {
		prepared[key] = value
	}

	var missing []string
	for _, field := range definition.Config {
		value, present := prepared[field.Key]
		if !present && field.Default != nil {
			prepared[field.Key] = field.Default
			continue
		}

		if field.Required && isEmptyConfigValue(value, present) {
			missing = append(missing, field.Key)
		}
	}

	if len(missing) > 0 {
		return nil, &domain.InvalidConfigError{NodeID: definition.ID, MissingFields: missing}
	}

	return prepared, nil
}

func isEmptyConfigValue(value any, present bool) bool {
	if !present || value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func (d *Dispatcher) failed(result ExecutionResult, started time.Time, err error) ExecutionResult {
	failure := domain.FailureFromError(err)
	result.Failure = &failure
	result.DurationMS = time.Since(started).Milliseconds()
	return result
}
