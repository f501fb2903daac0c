// Package backend provides a client for the household REST backend.
// Every response is an envelope {status, message, payload}; status 1 is success.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("backend")

// Client wraps HTTP calls to the household backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	guard      *resilience.Guard
	logger     *zap.Logger
}

// NewClient creates a backend client.
func NewClient(httpClient *http.Client, baseURL, apiKey string, guard *resilience.Guard, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		guard:      guard,
		logger:     logger,
	}
}

type envelope struct {
	Status  *int            `json:"status"`
	Message string          `json:"message"`
	Payload json.RawMessage `json:"payload"`
}

// doRequest executes one call and unwraps the envelope. Application failures
// (status != 1) come back as *resilience.Permanent so they are never retried.
func (c *Client) doRequest(ctx context.Context, method, path, user string, data any) (json.RawMessage, error) {
	url := c.baseURL + path

	var reader io.Reader
	if data != nil {
		body, err := json.Marshal(data)
		if err != nil {
			return nil, &resilience.Permanent{Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		c.logger.Error("backend: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &resilience.Permanent{Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-User", user)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("backend: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	// A well-formed rejection is an answer even on a 4xx.
	if decodeErr == nil && env.Status != nil && *env.Status != 1 && resp.StatusCode < 500 {
		c.logger.Debug("backend: request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", *env.Status),
			zap.String("message", env.Message),
		)
		return nil, &resilience.Permanent{Err: &domain.ErrApplication{Status: *env.Status, Message: env.Message}}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 512)),
		)
		err := fmt.Errorf("backend returned status %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			return nil, &resilience.Permanent{Err: err}
		}
		return nil, err
	}

	if decodeErr != nil || env.Status == nil {
		return nil, &resilience.Permanent{Err: fmt.Errorf("malformed backend envelope from %s %s", method, path)}
	}

	c.logger.Debug("backend: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return env.Payload, nil
}

// call runs doRequest under the guard and maps failures to domain errors.
func (c *Client) call(ctx context.Context, sec *domain.Section, method, path, user string, data any, idempotent bool) (json.RawMessage, error) {
	var payload json.RawMessage
	err := c.guard.Do(ctx, idempotent, func() error {
		p, err := c.doRequest(ctx, method, path, user, data)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return nil, c.mapError(sec, method, err)
	}
	return payload, nil
}

func (c *Client) mapError(sec *domain.Section, method string, err error) error {
	var appErr *domain.ErrApplication
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, resilience.ErrBreakerOpen):
		return &domain.ErrCircuitOpen{Service: "backend"}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: fmt.Sprintf("%s %s", method, sec.Key)}
	default:
		return &domain.ErrExternalService{Service: "backend/" + sec.Key, Err: err}
	}
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

// --- Records API (implements port.RecordStore) ---

// ListRecords fetches every record of a section for user.
func (c *Client) ListRecords(ctx context.Context, user string, sec *domain.Section) ([]domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Backend.ListRecords")
	defer span.End()
	span.SetAttributes(attribute.String("section", sec.Key))

	payload, err := c.call(ctx, sec, http.MethodGet, sec.Path(domain.OpList, ""), user, nil, true)
	if err != nil {
		return nil, err
	}

	records, err := DecodeRecords(sec, payload)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "backend/" + sec.Key, Err: err}
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

// CreateRecord posts a new record. Mutations are sent once, never retried.
func (c *Client) CreateRecord(ctx context.Context, user string, sec *domain.Section, data map[string]any) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Backend.CreateRecord")
	defer span.End()
	span.SetAttributes(attribute.String("section", sec.Key))

	payload, err := c.call(ctx, sec, http.MethodPost, sec.Path(domain.OpAdd, ""), user, data, false)
	if err != nil {
		return nil, err
	}
	return decodeRecord(sec, payload), nil
}

// UpdateRecord replaces the fields of an existing record.
func (c *Client) UpdateRecord(ctx context.Context, user string, sec *domain.Section, id string, data map[string]any) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "Backend.UpdateRecord")
	defer span.End()
	span.SetAttributes(attribute.String("section", sec.Key), attribute.String("record.id", id))

	payload, err := c.call(ctx, sec, http.MethodPut, sec.Path(domain.OpUpdate, id), user, data, false)
	if err != nil {
		return nil, err
	}
	return decodeRecord(sec, payload), nil
}

// DeleteRecord removes a record.
func (c *Client) DeleteRecord(ctx context.Context, user string, sec *domain.Section, id string) error {
	ctx, span := tracer.Start(ctx, "Backend.DeleteRecord")
	defer span.End()
	span.SetAttributes(attribute.String("section", sec.Key), attribute.String("record.id", id))

	_, err := c.call(ctx, sec, http.MethodDelete, sec.Path(domain.OpDelete, id), user, nil, false)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
