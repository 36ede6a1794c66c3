// Package tts provides a client for the remote text-to-speech HTTP API.
//
// The API is a two-step contract: a synthesis request returns a download URL,
// and a plain GET on that URL returns the audio bytes. Every call except the
// download carries the account key in the x-api-key header.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-studio/internal/core"
)

// API endpoints and paths.
const (
	apiVoices       = "/v1/voices"
	apiTextToSpeech = "/v1/text-to-speech"
)

// HTTP headers.
const (
	headerAPIKey      = "x-api-key"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Voice listing filters; the provider expects every filter to be present.
const (
	queryCategory = "category"
	queryGender   = "gender"
	queryLanguage = "language"
	filterAll     = "all"
)

// Response handling.
const (
	bodySnippetLimit       = 100
	unknownProviderMessage = "unknown error"
)

// Error messages.
const (
	errFmtStatusWithBody   = "status %d: %s"
	errFmtProviderMessage  = "%w: %s"
	errFmtNetwork          = "%w: %s %s: %w"
	errMissingDownloadURL  = "response carried no download URL"
	errFmtDownloadStatus   = "%w: status %d"
	errFmtVoicesStatus     = "voice listing failed: " + errFmtStatusWithBody
	errFmtConnectionStatus = "connectivity check failed: status %d"
)

var (
	// ErrSynthesisRequestFailed is returned when the synthesis call is refused or
	// its response is unusable.
	ErrSynthesisRequestFailed = errors.New("synthesis request failed")
	// ErrDownloadFailed is returned when the audio resource cannot be fetched.
	ErrDownloadFailed = errors.New("audio download failed")
	// ErrNetwork wraps transport-level failures of any call.
	ErrNetwork = errors.New("network error")
)

// Client talks to the remote TTS API. The underlying http.Client has no
// timeout; callers bound calls through their context when they need to.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// Voice is one entry of the provider's voice catalogue. Its shape is owned by
// the provider, so it is kept as decoded JSON.
type Voice map[string]any

// Field returns the first of keys holding a string value.
func (v Voice) Field(keys ...string) string {
	for _, key := range keys {
		if value, ok := v[key].(string); ok && value != "" {
			return value
		}
	}

	return ""
}

// synthesisResponse is the success body of the synthesis endpoint.
type synthesisResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// errorResponse is the failure body of the synthesis endpoint.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// voicesResponse accepts both the flat and the nested voice list shapes.
type voicesResponse struct {
	Voices []Voice `json:"voices"`
	Data   struct {
		Voices []Voice `json:"voices"`
	} `json:"data"`
}

// NewClient creates a client for the API rooted at baseURL (e.g. "https://ttsapi.fineshare.com").
func NewClient(baseURL string, log *logger.Logger) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{}, log)
}

// NewClientWithHTTP creates a client using the provided http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
	}
}

// ListVoices returns the provider's voice catalogue.
func (c *Client) ListVoices(ctx context.Context, apiKey string) ([]Voice, error) {
	url := c.baseURL + apiVoices

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}

	query := req.URL.Query()
	query.Set(queryCategory, filterAll)
	query.Set(queryGender, filterAll)
	query.Set(queryLanguage, filterAll)
	req.URL.RawQuery = query.Encode()
	req.Header.Set(headerAPIKey, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtNetwork, ErrNetwork, http.MethodGet, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf(errFmtNetwork, ErrNetwork, http.MethodGet, url, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errFmtVoicesStatus, resp.StatusCode, snippet(body))
	}

	var decoded voicesResponse

	err = parseJSON(body, &decoded)
	if err != nil {
		return nil, err
	}

	if len(decoded.Voices) > 0 {
		return decoded.Voices, nil
	}

	if decoded.Data.Voices != nil {
		return decoded.Data.Voices, nil
	}

	return []Voice{}, nil
}

// Ping checks that the API answers the voice listing endpoint with HTTP 200.
func (c *Client) Ping(ctx context.Context, apiKey string) error {
	url := c.baseURL + apiVoices

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create connectivity request: %w", err)
	}

	req.Header.Set(headerAPIKey, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(errFmtNetwork, ErrNetwork, http.MethodGet, url, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(errFmtConnectionStatus, resp.StatusCode)
	}

	return nil
}

// Synthesize submits a synthesis request and returns the URL of the produced audio.
func (c *Client) Synthesize(ctx context.Context, apiKey string, speech core.SpeechRequest) (string, error) {
	requestBody, err := json.Marshal(speech)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + apiTextToSpeech

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAPIKey, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf(errFmtNetwork, ErrNetwork, http.MethodPost, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf(errFmtNetwork, ErrNetwork, http.MethodPost, url, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseErrorResponse(body)
	}

	var decoded synthesisResponse

	err = parseJSON(body, &decoded)
	if err != nil {
		return "", fmt.Errorf(errFmtProviderMessage, ErrSynthesisRequestFailed, err.Error())
	}

	if decoded.DownloadURL == "" {
		return "", fmt.Errorf(errFmtProviderMessage, ErrSynthesisRequestFailed, errMissingDownloadURL)
	}

	return decoded.DownloadURL, nil
}

// Download fetches the audio at url. The URL itself grants access, so no key is sent.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, fmt.Errorf(errFmtNetwork, ErrNetwork, http.MethodGet, url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errFmtDownloadStatus, ErrDownloadFailed, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	c.log.Info("Downloaded %d bytes of audio", len(audio))

	return audio, nil
}

// parseErrorResponse extracts the provider's error message, falling back to a
// generic one when the body is not the documented error shape.
func parseErrorResponse(body []byte) error {
	var decoded errorResponse

	err := json.Unmarshal(body, &decoded)
	if err == nil && decoded.Error.Message != "" {
		return fmt.Errorf(errFmtProviderMessage, ErrSynthesisRequestFailed, decoded.Error.Message)
	}

	return fmt.Errorf(errFmtProviderMessage, ErrSynthesisRequestFailed, unknownProviderMessage)
}

func snippet(body []byte) string {
	runes := []rune(string(body))
	if len(runes) > bodySnippetLimit {
		runes = runes[:bodySnippetLimit]
	}

	return string(runes)
}
