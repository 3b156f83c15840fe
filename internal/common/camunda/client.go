// internal/common/camunda/client.go
package camunda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"marketplace-workers/internal/common/config"
	apperrors "marketplace-workers/internal/common/errors"
)

const dialTimeout = 10 * time.Second

// RetryPolicy bounds how often a gateway call is repeated after a transient
// gRPC failure.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var defaultRetryPolicy = RetryPolicy{Attempts: 4, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

// backoff returns the wait before retry number n (zero based).
func (p RetryPolicy) backoff(n int) time.Duration {
	d := p.BaseDelay << uint(n)
	if d <= 0 || d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Client owns the gateway connection shared by every job worker.
type Client struct {
	zb             zbc.Client
	gateway        string
	requestTimeout time.Duration
	retry          RetryPolicy
}

// NewClient dials the gateway named in cfg and fails fast when it does not
// answer a topology request.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	zb, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{
		zb:             zb,
		gateway:        cfg.BrokerAddress,
		requestTimeout: config.GetDuration(cfg.RequestTimeout),
		retry:          defaultRetryPolicy,
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = dialTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if _, err := zb.NewTopologyCommand().Send(ctx); err != nil {
		zb.Close()
		return nil, fmt.Errorf("gateway %s did not answer: %w", cfg.BrokerAddress, err)
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.zb
}

func (c *Client) Close() error {
	return c.zb.Close()
}

// HealthCheck reports whether the gateway still answers topology requests.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	err := withRetry(ctx, c.retry, "topology", func(ctx context.Context) error {
		_, err := c.zb.NewTopologyCommand().Send(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("zeebe gateway %s: %w", c.gateway, err)
	}
	return nil
}

// withRetry runs op until it succeeds, fails permanently, runs out of
// attempts or ctx ends. The final failure is a WORKFLOW_ENGINE_ERROR whose
// Retryable flag follows the gRPC status of the last attempt.
func withRetry(ctx context.Context, p RetryPolicy, op string, fn func(context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !isTransient(err) || attempt == p.Attempts-1 {
			break
		}

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return engineError(op, ctx.Err())
		}
	}
	return engineError(op, err)
}

func engineError(op string, err error) error {
	stdErr := apperrors.NewWorkflowEngineError(fmt.Errorf("%s: %w", op, err))
	stdErr.Retryable = isTransient(err)
	return stdErr
}

// isTransient reports gRPC statuses that a later attempt can clear.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
