package canva

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

	"github.com/angelsbailbonds/opsflow/pkg/poll"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL  = "https://api.canva.com/rest/v1"
	DefaultTokenURL = "https://api.canva.com/rest/v1/oauth/token"
	DefaultAuthURL  = "https://www.canva.com/api/oauth/authorize"
)

// Endpoint is the Canva Connect OAuth2 endpoint. Canva expects client
// credentials in a basic auth header.
var Endpoint = oauth2.Endpoint{
	AuthURL:   DefaultAuthURL,
	TokenURL:  DefaultTokenURL,
	AuthStyle: oauth2.AuthStyleInHeader,
}

var Scopes = []string{"design:meta:read", "design:content:read"}

// RedirectURL must be registered on the Canva integration. Nothing listens
// on it; `opsflow auth canva` asks for the code shown in the address bar.
const RedirectURL = "http://127.0.0.1/oauth/redirect"

func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		Scopes:       Scopes,
		RedirectURL:  RedirectURL,
	}
}

type ClientInterface interface {
	ListDesigns(ctx context.Context, req ListDesignsRequest) (*ListDesignsResponse, error)
	GetDesign(ctx context.Context, designID string) (*Design, error)
	CreateExport(ctx context.Context, req ExportRequest) (*ExportJob, error)
	GetExport(ctx context.Context, jobID string) (*ExportJob, error)
	ExportDesign(ctx context.Context, req ExportRequest, opts poll.Options) (*ExportJob, error)
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the client used for requests. It is expected to add
// the bearer token, e.g. one built by oauthstore.HTTPClient.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(options ...ClientOption) *Client {
	client := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Error represents an error response from the Canva API
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Method     string `json:"-"`
	Path       string `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("canva: %s %s: %s: %s (status: %d)", e.Method, e.Path, e.Code, e.Message, e.StatusCode)
}

func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func (e *Error) IsNotFound() bool {
	return e.StatusCode == 404
}

func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any, result any) error {
	var requestBody io.Reader

	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewReader(bodyBytes)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, requestBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{}
		_ = json.Unmarshal(respBody, apiErr)

		apiErr.StatusCode = resp.StatusCode
		apiErr.Method = method
		apiErr.Path = path

		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}

		return apiErr
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
