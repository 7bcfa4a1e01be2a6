package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"studyviz-backend/internal/documents"
	"studyviz-backend/internal/visualizations"
)

const defaultHTTPTimeout = 30 * time.Second

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match ErrNotFound for 404 answers.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the document API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client for baseURL, for example http://localhost:8080.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Upload submits a PDF for the given visualization kind and returns the
// processing document.
func (c *Client) Upload(ctx context.Context, fileName string, data []byte, kind visualizations.Kind) (documents.Document, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return documents.Document{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return documents.Document{}, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.WriteField("type", string(kind)); err != nil {
		return documents.Document{}, fmt.Errorf("write type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return documents.Document{}, fmt.Errorf("close multipart: %w", err)
	}

	var doc documents.Document
	err = c.do(ctx, http.MethodPost, "/api/upload", writer.FormDataContentType(), body, &doc)
	return doc, err
}

// GetDocument reads a document by id.
func (c *Client) GetDocument(ctx context.Context, id string) (documents.Document, error) {
	var doc documents.Document
	err := c.do(ctx, http.MethodGet, "/api/documents/"+id, "", nil, &doc)
	return doc, err
}

// ListVisualizations reads the visualizations of a document.
func (c *Client) ListVisualizations(ctx context.Context, documentID string) ([]visualizations.Visualization, error) {
	var vizzes []visualizations.Visualization
	if err := c.do(ctx, http.MethodGet, "/api/visualizations/"+documentID, "", nil, &vizzes); err != nil {
		return nil, err
	}
	if vizzes == nil {
		vizzes = []visualizations.Visualization{}
	}
	return vizzes, nil
}

// DeleteDocument removes a document and its visualizations.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/documents/"+id, "", nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return errors.New("delete not acknowledged")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status}
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Error) > 0 {
		var structured struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body.Error, &structured); err == nil {
			apiErr.Code = structured.Code
			apiErr.Message = structured.Message
			return apiErr
		}
		// Rate limiting answers with a bare string code.
		var code string
		if err := json.Unmarshal(body.Error, &code); err == nil {
			apiErr.Code = code
			return apiErr
		}
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}
