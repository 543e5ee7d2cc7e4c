package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/diagnose"
)

// Path is the fixed prediction endpoint relative to the service base URL.
const Path = "/api/v1/predict"

const (
	fieldDiseaseType = "disease_type"
	fieldFile        = "file"
	maxErrBody       = 512
	maxResultBody    = 1 << 20
)

const defaultTimeout = 60 * time.Second

type Client struct {
	endpoint  string
	userAgent string
	httpc     *http.Client
}

type Option func(*options)

type options struct {
	httpc      *http.Client
	timeout    time.Duration
	hasTimeout bool
	userAgent  string
}

// WithHTTPClient supplies the transport. The client is copied, never modified.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpc = c }
}

// WithTimeout bounds one whole round trip; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout, o.hasTimeout = d, true }
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

func New(baseURL string, opts ...Option) *Client {
	o := options{userAgent: "docgpt-web"}
	for _, opt := range opts {
		opt(&o)
	}

	httpc := &http.Client{Timeout: defaultTimeout}
	if o.httpc != nil {
		cp := *o.httpc
		httpc = &cp
	}
	if o.hasTimeout {
		httpc.Timeout = o.timeout
	}
	return &Client{
		endpoint:  strings.TrimRight(baseURL, "/") + Path,
		userAgent: o.userAgent,
		httpc:     httpc,
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// Predict issues exactly one request. No retries.
func (c *Client) Predict(ctx context.Context, sub diagnose.Submission) (diagnose.Result, error) {
	body, contentType, err := encodeForm(sub)
	if err != nil {
		return diagnose.Result{}, failed("encode form: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return diagnose.Result{}, failed("build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	started := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return diagnose.Result{}, failed("transport: %v", err)
	}
	defer resp.Body.Close()

	log.WithFields(log.Fields{
		"category": sub.Category,
		"status":   resp.StatusCode,
		"elapsed":  time.Since(started).String(),
	}).Debug("predict response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return diagnose.Result{}, failed("predict %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var out diagnose.Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResultBody)).Decode(&out); err != nil {
		return diagnose.Result{}, failed("decode: %v", err)
	}
	if err := out.Validate(); err != nil {
		return diagnose.Result{}, failed("%v", err)
	}
	return out, nil
}

// encodeForm writes disease_type first, then the file part.
func encodeForm(sub diagnose.Submission) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	if err := mw.WriteField(fieldDiseaseType, sub.Category.String()); err != nil {
		return nil, "", err
	}

	name := sub.Image.Name
	if name == "" {
		name = "image"
	}
	ct := sub.Image.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldFile, escapeQuotes(name)))
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(sub.Image.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

func failed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", diagnose.ErrAnalysisFailed, fmt.Sprintf(format, args...))
}
