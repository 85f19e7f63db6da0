package airport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/airdistance/internal/distance/domain"
)

// DefaultBaseURL is the public places API.
const DefaultBaseURL = "https://places-dev.continent.ru"

// RequestError reports a request that never produced a response.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("Error while receiving data: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Unsuccessful request, error code: %d %s.", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets a 404 match domain.ErrAirportNotFound.
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrAirportNotFound && e.StatusCode == http.StatusNotFound
}

// DecodeError reports a 2xx body that is not an airport document.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("Error while deserializing data: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClientConfig configures the places API client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements domain.AirportProvider over the places HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client, filling defaults for empty fields.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), http: cfg.HTTPClient}, nil
}

// Fetch loads the airport document for code. An empty or null body yields a
// nil record and a nil error.
func (c *Client) Fetch(ctx context.Context, code string) (*domain.AirportRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/airports/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	var record *domain.AirportRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return record, nil
}

// IsNotFound reports whether err is the provider's not-found signal.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrAirportNotFound)
}
