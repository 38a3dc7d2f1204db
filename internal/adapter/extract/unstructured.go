package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"ragsearch/internal/domain"
)

// DefaultAPIURL is the hosted Unstructured partition endpoint.
const DefaultAPIURL = "https://api.unstructured.io/general/v0/general"

// DefaultTimeout bounds a single upload/extract exchange.
const DefaultTimeout = 60 * time.Second

// Options configures the extraction retriever.
type Options struct {
	FilePath string `key:"file_path" validate:"required"`
	APIKey   string `key:"api_key" validate:"required"`
	APIURL   string `key:"api_url"`
}

type element struct {
	Type      string `json:"type"`
	ElementID string `json:"element_id"`
	Text      string `json:"text"`
}

// Option customizes a Retriever.
type Option func(*Retriever)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Retriever) {
		if client != nil {
			r.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Retriever uploads a file to a hosted extraction service on every query.
// It holds no connection.
type Retriever struct {
	filePath string
	apiKey   string
	apiURL   string
	client   *http.Client
	logger   *zap.Logger
}

func New(opts Options, options ...Option) *Retriever {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	r := &Retriever{
		filePath: opts.FilePath,
		apiKey:   opts.APIKey,
		apiURL:   apiURL,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Connect is a no-op; each Query is a self-contained exchange.
func (r *Retriever) Connect(ctx context.Context) error {
	return nil
}

func (r *Retriever) Close() error {
	return nil
}

// Query extracts the file's text. A non-empty req.Text keeps only the
// lines that contain it, ignoring case.
func (r *Retriever) Query(ctx context.Context, req domain.Request) ([]domain.Record, error) {
	body, contentType, err := r.buildUpload()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL, body)
	if err != nil {
		return nil, domain.NewResourceError(domain.KindExtraction, "create request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	r.logger.Debug("extraction request",
		zap.String("url", r.apiURL),
		zap.String("file", r.filePath))

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewResourceError(domain.KindExtraction, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewResourceError(domain.KindExtraction, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewResourceError(domain.KindExtraction,
			fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var elements []element
	if err := json.Unmarshal(respBody, &elements); err != nil {
		bodyPreview := string(respBody)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, domain.NewResourceError(domain.KindExtraction,
			fmt.Sprintf("failed to parse response (body: %s)", bodyPreview), err)
	}

	records := make([]domain.Record, 0, len(elements))
	for _, el := range elements {
		if el.Text == "" {
			continue
		}
		records = append(records, domain.Record{Text: el.Text, Source: r.filePath})
	}

	return domain.FilterLines(records, req.Text), nil
}

func (r *Retriever) buildUpload() (*bytes.Buffer, string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, "", domain.NewResourceError(domain.KindExtraction, fmt.Sprintf("open %s", r.filePath), err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", filepath.Base(r.filePath))
	if err != nil {
		return nil, "", domain.NewResourceError(domain.KindExtraction, "build upload", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", domain.NewResourceError(domain.KindExtraction, fmt.Sprintf("read %s", r.filePath), err)
	}
	if err := w.Close(); err != nil {
		return nil, "", domain.NewResourceError(domain.KindExtraction, "build upload", err)
	}
	return &buf, w.FormDataContentType(), nil
}
