package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pptgen/internal/observability/logging"
	"pptgen/internal/requestid"
	"pptgen/internal/resilience/retry"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 32 << 20

const contentTypeJSON = "application/json"

// errRateLimitDeadline reports that the next rate limit slot lies beyond the call deadline.
var errRateLimitDeadline = errors.New("rate limit wait would exceed deadline")

// request is a fully encoded call, reused unchanged by every attempt.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
}

// Do sends method to the client's base URL + path and decodes a JSON response into T.
// A non-nil body is encoded as JSON. opts override the client's policy for this call only.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, opts ...CallOption) Outcome[T] {
	req := request{method: method, path: path}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return failed[T](fmt.Sprintf("encode request body: %v", err), http.StatusInternalServerError, 0)
		}
		req.body = payload
		req.contentType = contentTypeJSON
	}
	return execute[T](ctx, c, req, opts)
}

// Get sends a GET request.
func Get[T any](ctx context.Context, c *Client, path string, opts ...CallOption) Outcome[T] {
	return Do[T](ctx, c, http.MethodGet, path, nil, opts...)
}

// Post sends a POST request with a JSON body.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) Outcome[T] {
	return Do[T](ctx, c, http.MethodPost, path, body, opts...)
}

// Put sends a PUT request with a JSON body.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) Outcome[T] {
	return Do[T](ctx, c, http.MethodPut, path, body, opts...)
}

// Delete sends a DELETE request.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...CallOption) Outcome[T] {
	return Do[T](ctx, c, http.MethodDelete, path, nil, opts...)
}

// PostForm sends a multipart/form-data POST. The body is sent as encoded by the form,
// with the multipart Content-Type and boundary instead of application/json.
func PostForm[T any](ctx context.Context, c *Client, path string, form *Form, opts ...CallOption) Outcome[T] {
	if form == nil {
		form = NewForm()
	}
	payload, contentType, err := form.encode()
	if err != nil {
		return failed[T](err.Error(), http.StatusInternalServerError, 0)
	}
	return execute[T](ctx, c, request{
		method:      http.MethodPost,
		path:        path,
		body:        payload,
		contentType: contentType,
	}, opts)
}

// execute runs the retry loop for one call under a single deadline.
func execute[T any](ctx context.Context, c *Client, req request, opts []CallOption) Outcome[T] {
	cfg := c.cfg.merge(opts)
	if err := cfg.Validate(); err != nil {
		return failed[T](fmt.Sprintf("invalid call configuration: %v", err), http.StatusInternalServerError, 0)
	}

	start := time.Now()
	ctx, _ = requestid.Ensure(ctx)
	logger := logging.WithRequestID(ctx, c.logger).With(
		slog.String("client", c.name),
		slog.String("method", req.method),
		slog.String("path", req.path))

	ctx, span := c.tracer.Start(ctx, "apiclient.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.path", req.path),
			attribute.String("pptgen.client", c.name),
		))
	defer span.End()

	// One deadline for the whole call; released on every return path.
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	retrier := retry.New(retry.Config{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		Multiplier:   2.0,
		Classify:     c.classify,
	}, retry.WithSleeper(c.sleep), retry.WithLogger(logger))

	var (
		data     T
		status   int
		attempts int
	)
	err := retrier.Run(ctx, func(ctx context.Context, attempt int) error {
		attempts++
		c.metrics.recordAttempt(c.name, req.method)

		code, err := c.attempt(ctx, req, &data)
		if err != nil {
			c.metrics.recordAttemptError(c.name, errorKind(err))
			return err
		}
		status = code
		return nil
	})

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("pptgen.attempts", attempts))

	if err == nil {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		c.metrics.recordCall(c.name, req.method, "success", elapsed.Seconds())
		return succeeded(data, status, attempts)
	}

	code := http.StatusInternalServerError
	outcome := "failure"
	if retry.IsDeadline(err) {
		code = http.StatusRequestTimeout
		outcome = "timeout"
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.metrics.recordCall(c.name, req.method, outcome, elapsed.Seconds())
	logger.Warn("backend request failed",
		slog.Int("status", code),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", elapsed),
		slog.Any("error", err))

	return failed[T](err.Error(), code, attempts)
}

// attempt sends the request once and decodes a 2xx body into out.
func (c *Client) attempt(ctx context.Context, req request, out any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, fmt.Errorf("rate limit wait: %w", ctxErr)
			}
			// The limiter refuses waits that would outlive the deadline.
			return 0, fmt.Errorf("%w: %w", errRateLimitDeadline, context.DeadlineExceeded)
		}
	}

	var status int
	send := func() error {
		code, err := c.send(ctx, req, out)
		status = code
		return err
	}

	if c.breaker != nil {
		return status, c.breaker.Execute(send)
	}
	return status, send()
}

func (c *Client) send(ctx context.Context, req request, out any) (int, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.cfg.BaseURL+req.path, body)
	if err != nil {
		return 0, fmt.Errorf("create http request: %w", err)
	}

	for key, values := range c.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	requestid.Apply(httpReq)

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return resp.StatusCode, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    statusText(resp),
		}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	// Empty 2xx bodies (204 No Content, DELETE acknowledgements) decode to the zero value.
	if len(bytes.TrimSpace(payload)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return resp.StatusCode, &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}
	return resp.StatusCode, nil
}

// statusText returns the reason phrase of resp, e.g. "Not Found".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
