// Package linear provides a GraphQL client for the Linear API.
// It implements a deep module interface - simple methods hiding complex GraphQL queries.
package linear

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/machinebox/graphql"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/auth"
)

// DefaultEndpoint is Linear's public GraphQL endpoint.
const DefaultEndpoint = "https://api.linear.app/graphql"

// DefaultIssueLimit mirrors the page size the dashboards were built against.
const DefaultIssueLimit = 250

// ErrNotFound is returned when a requested node does not exist.
var ErrNotFound = errors.New("not found")

// Observer receives the latency and outcome of each upstream call.
// telemetry.Recorder implements it.
type Observer interface {
	ObserveUpstream(operation string, err error, d time.Duration)
}

// Client is a Linear GraphQL API client.
// It provides high-level methods for querying teams, projects and issues.
type Client struct {
	gql        *graphql.Client
	apiKey     string
	issueLimit int
	logger     *zap.Logger
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for upstream errors.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithIssueLimit overrides the number of issues fetched by Issues.
func WithIssueLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.issueLimit = n
		}
	}
}

// WithObserver attaches an upstream call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a new Linear client for endpoint authenticated with apiKey.
// An empty endpoint uses DefaultEndpoint.
func New(endpoint, apiKey string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		gql:        graphql.NewClient(endpoint),
		apiKey:     apiKey,
		issueLimit: DefaultIssueLimit,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig resolves the API key (config, env, key file) and creates a client.
// Returns an error if key retrieval fails.
func NewFromConfig(endpoint, configuredKey string, opts ...Option) (*Client, error) {
	key, err := auth.GetToken(configuredKey)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain Linear API key: %w", err)
	}
	return New(endpoint, key, opts...), nil
}

// makeRequest executes a GraphQL request with authentication.
// Linear personal API keys are sent verbatim, without a Bearer prefix.
func (c *Client) makeRequest(ctx context.Context, op string, req *graphql.Request, resp interface{}) error {
	req.Header.Set("Authorization", c.apiKey)

	start := time.Now()
	err := c.gql.Run(ctx, req, resp)
	if c.observer != nil {
		c.observer.ObserveUpstream(op, err, time.Since(start))
	}
	if err != nil {
		c.logger.Error("Linear API request failed",
			zap.String("operation", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}

	c.logger.Debug("Linear API request", zap.String("operation", op), zap.Duration("elapsed", time.Since(start)))
	return nil
}
