package footanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/footcare/footcare/internal/platform/apperr"
	"github.com/footcare/footcare/internal/platform/telemetry"
)

var (
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrClassifierReply       = errors.New("classifier returned an invalid response")
)

// Classifier labels a foot photo.
type Classifier interface {
	Classify(ctx context.Context, filename string, image io.Reader) (*Prediction, error)
}

// Observer records classifier call outcomes. *telemetry.Metrics implements it.
type Observer interface {
	ObserveClassification(outcome string, d time.Duration)
}

// HTTPClassifier posts the image as multipart field "file" to an external
// prediction service answering {"prediction": ..., "confidence": ...}.
type HTTPClassifier struct {
	url     string
	client  *http.Client
	tracer  trace.Tracer
	metrics Observer
}

// ClassifierOption configures an HTTPClassifier.
type ClassifierOption func(*HTTPClassifier)

func WithHTTPClient(c *http.Client) ClassifierOption {
	return func(h *HTTPClassifier) { h.client = c }
}

func WithTracer(t trace.Tracer) ClassifierOption {
	return func(h *HTTPClassifier) { h.tracer = t }
}

func WithObserver(o Observer) ClassifierOption {
	return func(h *HTTPClassifier) { h.metrics = o }
}

func NewHTTPClassifier(url string, timeout time.Duration, opts ...ClassifierOption) *HTTPClassifier {
	h := &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

type predictResponse struct {
	Prediction string   `json:"prediction"`
	Confidence *float64 `json:"confidence"`
}

func (h *HTTPClassifier) Classify(ctx context.Context, filename string, image io.Reader) (*Prediction, error) {
	ctx, span := h.tracer.Start(ctx, "classifier.predict",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.full", h.url),
		),
	)
	defer span.End()

	start := time.Now()
	p, outcome, err := h.do(ctx, span, filename, image)
	if h.metrics != nil {
		h.metrics.ObserveClassification(outcome, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("classifier.label", p.Label))
	return p, nil
}

func (h *HTTPClassifier) do(ctx context.Context, span trace.Span, filename string, image io.Reader) (*Prediction, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, telemetry.OutcomeUpstreamError, fmt.Errorf("build request: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, telemetry.OutcomeUpstreamError, fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, telemetry.OutcomeUpstreamError, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, &body)
	if err != nil {
		return nil, telemetry.OutcomeUpstreamError, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, telemetry.OutcomeUpstreamError, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, telemetry.OutcomeUpstreamError,
			fmt.Errorf("%w: status %d: %s", ErrClassifierUnavailable, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return nil, telemetry.OutcomeInvalidReply, fmt.Errorf("%w: %v", ErrClassifierReply, err)
	}
	if out.Prediction == "" || out.Confidence == nil {
		return nil, telemetry.OutcomeInvalidReply, fmt.Errorf("%w: missing prediction or confidence", ErrClassifierReply)
	}
	conf, ok := normalizeConfidence(*out.Confidence)
	if !ok {
		return nil, telemetry.OutcomeInvalidReply, fmt.Errorf("%w: confidence %v out of range", ErrClassifierReply, *out.Confidence)
	}
	return &Prediction{Label: out.Prediction, Confidence: conf}, telemetry.OutcomeSuccess, nil
}

// normalizeConfidence accepts a probability in [0,1] or a percentage in
// (1,100] and returns a probability.
func normalizeConfidence(c float64) (float64, bool) {
	switch {
	case c >= 0 && c <= 1:
		return c, true
	case c > 1 && c <= 100:
		return c / 100, true
	default:
		return 0, false
	}
}

// upstreamError classifies a Classify failure for clients.
func upstreamError(err error) error {
	if errors.Is(err, ErrClassifierReply) {
		return apperr.Upstream("Foot analysis service returned an invalid response", err)
	}
	return apperr.Upstream("Foot analysis service is unavailable", err)
}
