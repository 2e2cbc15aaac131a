// Package uploader posts samples to the collector endpoint.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// PayloadFormat selects the request body shape.
type PayloadFormat string

const (
	// PayloadRich carries every sample field and an ISO-8601 timestamp.
	PayloadRich PayloadFormat = "rich"
	// PayloadMinimal carries lat, lng and an epoch-millis timestamp.
	PayloadMinimal PayloadFormat = "minimal"
)

// TimestampLayout is UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

func ParsePayloadFormat(s string) (PayloadFormat, error) {
	switch PayloadFormat(s) {
	case "", PayloadRich:
		return PayloadRich, nil
	case PayloadMinimal:
		return PayloadMinimal, nil
	default:
		return "", fmt.Errorf("unknown payload format %q", s)
	}
}

type richPayload struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Ts       string  `json:"ts"`
	Accuracy float64 `json:"accuracy"`
	Altitude float64 `json:"altitude"`
	Speed    float64 `json:"speed"`
	Bearing  float64 `json:"bearing"`
}

type minimalPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	Ts  int64   `json:"ts"`
}

type Option func(*HTTPUploader)

func WithFormat(f PayloadFormat) Option {
	return func(u *HTTPUploader) { u.format = f }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(u *HTTPUploader) {
		if tp != nil {
			u.tracer = tp.Tracer("github.com/ghalamif/TrackGate/uploader")
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *HTTPUploader) {
		if now != nil {
			u.clock = now
		}
	}
}

// HTTPUploader makes exactly one POST per call. It never retries.
type HTTPUploader struct {
	client *http.Client
	format PayloadFormat
	tracer trace.Tracer
	clock  func() time.Time
}

func NewHTTPUploader(client *http.Client, opts ...Option) *HTTPUploader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	u := &HTTPUploader{
		client: client,
		format: PayloadRich,
		tracer: noop.NewTracerProvider().Tracer(""),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *HTTPUploader) Name() string { return "http" }

// Upload posts s to cfg.EndpointURL with user_id as a query parameter.
// Any 2xx is success. The response body is discarded.
func (u *HTTPUploader) Upload(ctx context.Context, cfg domain.AgentConfig, s domain.Sample) error {
	ctx, span := u.tracer.Start(ctx, "trackgate.upload", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	target, err := endpointWithUser(cfg.EndpointURL, cfg.UserID)
	if err != nil {
		return u.fail(span, &domain.UploadError{Err: err})
	}
	span.SetAttributes(
		attribute.String("trackgate.user_id", cfg.UserID),
		attribute.String("trackgate.payload_format", string(u.format)),
		attribute.String("http.url", target),
	)

	body, err := u.encode(s, u.clock())
	if err != nil {
		return u.fail(span, &domain.UploadError{Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return u.fail(span, &domain.UploadError{Err: err})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return u.fail(span, &domain.UploadError{Err: err})
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return u.fail(span, &domain.UploadError{StatusCode: resp.StatusCode})
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (u *HTTPUploader) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (u *HTTPUploader) encode(s domain.Sample, now time.Time) ([]byte, error) {
	if u.format == PayloadMinimal {
		return json.Marshal(minimalPayload{
			Lat: s.Latitude,
			Lng: s.Longitude,
			Ts:  now.UnixMilli(),
		})
	}
	return json.Marshal(richPayload{
		Lat:      s.Latitude,
		Lng:      s.Longitude,
		Ts:       now.UTC().Format(TimestampLayout),
		Accuracy: s.Accuracy,
		Altitude: s.Altitude,
		Speed:    s.Speed,
		Bearing:  s.Bearing,
	})
}

func endpointWithUser(endpoint, userID string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("endpoint url: unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("user_id", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var _ ports.Uploader = (*HTTPUploader)(nil)
