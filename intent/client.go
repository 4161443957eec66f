package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// DefaultEndpoint is the hosted intent model.
const DefaultEndpoint = "https://speech-backend-5rmy.onrender.com/predict-intent/"

// Client posts audio to an intent endpoint as a multipart form. It does
// not retry, authenticate or time out on its own; callers bound a request
// through its context.
type Client struct {
	client   *TracedClient
	endpoint string
}

func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{client: NewTracedClient(), endpoint: endpoint}
}

func (c *Client) Name() string { return "http" }

func (c *Client) Endpoint() string { return c.endpoint }

// Warm pre-establishes the connection to the endpoint.
func (c *Client) Warm() { c.client.Warm(c.endpoint) }

type predictResponse struct {
	Intent   string   `json:"intent"`
	Entities []Entity `json:"entities"`
	Error    string   `json:"error"`
}

// Classify uploads p as the form field "file". Non-2xx answers are decoded
// like any other: an error body carries no intent and so yields Unknown,
// with the status left on the result for the caller to log.
func (c *Client) Classify(ctx context.Context, p Payload) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	mime := p.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, UploadFilename))
	h.Set("Content-Type", mime)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(p.Data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intent request: %w", err)
	}

	var pr predictResponse
	if err := json.Unmarshal(resp.Body, &pr); err != nil {
		return nil, fmt.Errorf("intent response parse error (status %d): %w", resp.StatusCode, err)
	}

	intent := pr.Intent
	if intent == "" {
		intent = Unknown
	}
	return &Result{
		Recognition: Recognition{Intent: intent, Entities: pr.Entities},
		StatusCode:  resp.StatusCode,
		Metrics:     resp.Metrics,
		Server:      firstNonEmpty(resp.Header, "Server", "X-Served-By"),
	}, nil
}
