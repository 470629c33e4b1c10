// Package dataapi is the REST client for the upstream medical-data API.
package dataapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"yourloops-dashboard/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	HeaderSessionToken = "X-Tidepool-Session-Token"
	HeaderTraceToken   = "X-Tidepool-Trace-Session"
)

// ErrNotFound is returned when the upstream has no data for the patient.
var ErrNotFound = errors.New("upstream data not found")

// StatusError carries an unexpected upstream HTTP status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream status %d", e.Op, e.Status)
}

// MessageKey maps an upstream failure to the message key shown to users.
func MessageKey(err error) string {
	var se *StatusError
	if errors.As(err, &se) && (se.Status == http.StatusInternalServerError || se.Status == http.StatusServiceUnavailable) {
		return "error-http-500"
	}
	return "error-http-40x"
}

// Session is the caller's upstream credentials.
type Session struct {
	SessionToken string
	TraceToken   string
}

type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// single attempt per call, resty output goes through zap
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(logger.Sugar()).
		SetHeader("Accept", "application/json")
	return &Client{http: c, logger: logger}
}

func (c *Client) request(ctx context.Context, s Session) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader(HeaderSessionToken, s.SessionToken).
		SetHeader(HeaderTraceToken, s.TraceToken)
}

// SummaryV1 returns nil, nil when the patient has no summary.
func (c *Client) SummaryV1(ctx context.Context, s Session, userID string) (*domain.PatientDataSummary, error) {
	var out domain.PatientDataSummary
	resp, err := c.request(ctx, s).
		SetPathParam("userId", userID).
		SetResult(&out).
		Get("/data/v1/summary/{userId}")
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, nil
	case resp.IsError():
		return nil, &StatusError{Op: "summary", Status: resp.StatusCode(), Body: resp.String()}
	}
	return &out, nil
}

// DataRange returns the [first, last] data timestamps, or nil when the patient has no data.
func (c *Client) DataRange(ctx context.Context, s Session, userID string) (*domain.DataRange, error) {
	var out []string
	resp, err := c.request(ctx, s).
		SetPathParam("userId", userID).
		SetResult(&out).
		Get("/data/v1/range/{userId}")
	if err != nil {
		return nil, fmt.Errorf("failed to get data range: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, nil
	case resp.IsError():
		return nil, &StatusError{Op: "range", Status: resp.StatusCode(), Body: resp.String()}
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("invalid data range response: %d values", len(out))
	}
	return &domain.DataRange{Start: out[0], End: out[1]}, nil
}

type computedTIR struct {
	UserID string          `json:"userId"`
	Count  domain.TIRCount `json:"count"`
}

// TIR returns the band counts over [start, end].
func (c *Client) TIR(ctx context.Context, s Session, userID, start, end string) (*domain.TIRCount, error) {
	var out []computedTIR
	resp, err := c.request(ctx, s).
		SetQueryParam("userIds", userID).
		SetQueryParam("startDate", start).
		SetQueryParam("endDate", end).
		SetResult(&out).
		Get("/compute/tir")
	if err != nil {
		return nil, fmt.Errorf("failed to compute tir: %w", err)
	}
	if resp.IsError() {
		if resp.StatusCode() == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, &StatusError{Op: "tir", Status: resp.StatusCode(), Body: resp.String()}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	c.logger.Debug("Computed TIR", zap.String("patient_id", userID), zap.Int("values", out[0].Count.Total()))
	return &out[0].Count, nil
}
