package rapyuta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vyvo/iobuilds/pkg/auth"
)

const tracerName = "github.com/vyvo/iobuilds/pkg/rapyuta"

var (
	// ErrConflict is returned when the remote resource already exists.
	ErrConflict = errors.New("resource already exists")
	// ErrNotFound is returned when the remote service reports missing resources.
	ErrNotFound = errors.New("resource not found")
)

// APIError carries a non-success response from the rapyuta.io APIs.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps well known status codes onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusConflict:
		return ErrConflict
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Client talks to the rapyuta.io core and catalog APIs on behalf of one auth token.
type Client struct {
	coreURL    string
	catalogURL string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a client for the given core and catalog API roots. Calls
// carry no timeout of their own; callers bound them through ctx.
func NewClient(coreURL, catalogURL, authToken string) *Client {
	return &Client{
		coreURL:    strings.TrimSuffix(coreURL, "/"),
		catalogURL: strings.TrimSuffix(catalogURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{},
	}
}

// request describes one API call. project is sent in the `project` header the
// catalog API uses for scoping; it is empty for core API calls.
type request struct {
	op       string
	method   string
	endpoint string
	project  string
	body     any
}

func (c *Client) do(ctx context.Context, req request, out any) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, req.op)
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("http.url", req.endpoint),
	)
	if req.project != "" {
		span.SetAttributes(attribute.String("rapyuta.project", req.project))
	}
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", req.op, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.endpoint, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", req.op, err)
	}
	auth.SetBearerToken(httpReq, c.authToken)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.project != "" {
		httpReq.Header.Set("project", req.project)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", req.op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{
			Method:     req.method,
			Endpoint:   req.endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.op, err)
	}
	return nil
}
