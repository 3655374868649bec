package badgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"badgerelay/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// HTTP methods accepted by call.
const (
	methodGet  = http.MethodGet
	methodPost = http.MethodPost
)

// Error kinds, mirroring the three failure causes of the remote API contract
// plus transport failures that never produced a response.
const (
	ErrKindTransport = "transport"
	ErrKindBadJSON   = "bad_json"
	ErrKindAPIError  = "api_error"
	ErrKindUnknown   = "unknown"
)

// APIError is a structured failure from a remote API call.
type APIError struct {
	Kind       string
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether the failure was an HTTP 404. Only these count
// against the issuance retry budget.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// RemoteBadge is one badge object as returned by the remote service.
type RemoteBadge struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Image          string      `json:"image"`
	CollectionID   json.Number `json:"collection_id"`
	Level          string      `json:"level"`
	Status         string      `json:"status"`
	Requirements   string      `json:"requirements"`
	Hint           string      `json:"hint"`
	RequiredBadges []int64     `json:"required_badges"`
	AutoIssue      bool        `json:"auto_issue"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// HasPrerequisites reports whether the badge requires other badges first.
// Such badges cannot be mirrored because prerequisite chains are not modeled
// locally.
func (b RemoteBadge) HasPrerequisites() bool {
	return len(b.RequiredBadges) > 0
}

// IssueResult is the response to an issue request: the recipient's full badge
// list after the operation.
type IssueResult struct {
	Badges []RemoteBadge `json:"badges"`
}

// CreateBadgeRequest carries the fields for creating a badge remotely.
type CreateBadgeRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Requirements string `json:"requirements,omitempty"`
	Hint         string `json:"hint,omitempty"`
	CollectionID string `json:"collection_id"`
	Level        string `json:"level"`
	Status       string `json:"status"`
	AutoIssue    *bool  `json:"auto_issue,omitempty"`
}

// Client issues authenticated calls to the remote badge service. The client
// itself never retries; retry policy belongs to the issuance engine.
type Client struct {
	endpoint    string
	apiKey      string
	successMin  int
	successMax  int
	httpClient  *http.Client
	imageClient *http.Client
	logger      *zap.Logger
}

// New creates a badge service client from configuration.
func New(cfg config.BadgesConfig, logger *zap.Logger) *Client {
	return &Client{
		endpoint:    strings.TrimRight(cfg.APIEndpoint, "/"),
		apiKey:      cfg.APIKey,
		successMin:  cfg.SuccessStatusMin,
		successMax:  cfg.SuccessStatusMax,
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		imageClient: &http.Client{Timeout: cfg.ImageTimeout},
		logger:      logger,
	}
}

// ListBadges retrieves the badge list, optionally scoped to one collection.
func (c *Client) ListBadges(ctx context.Context, collection string) ([]RemoteBadge, error) {
	params := url.Values{}
	if collection != "" {
		params.Set("collection_id", collection)
	}

	raw, err := c.call(ctx, methodGet, "/badges", params, nil)
	if err != nil {
		return nil, err
	}

	var badges []RemoteBadge
	if err := json.Unmarshal(raw, &badges); err != nil {
		return nil, &APIError{
			Kind:    ErrKindUnknown,
			Message: fmt.Sprintf("Unknown error. API response: %s", string(raw)),
			Body:    string(raw),
		}
	}
	return badges, nil
}

// ListUserBadgeIDs retrieves the IDs of badges already issued to a user.
func (c *Client) ListUserBadgeIDs(ctx context.Context, username string) ([]int64, error) {
	params := url.Values{}
	params.Set("user", username)

	raw, err := c.call(ctx, methodGet, "/badges", params, nil)
	if err != nil {
		return nil, err
	}

	var badges []RemoteBadge
	if err := json.Unmarshal(raw, &badges); err != nil {
		return nil, &APIError{
			Kind:    ErrKindUnknown,
			Message: fmt.Sprintf("Unknown error. API response: %s", string(raw)),
			Body:    string(raw),
		}
	}

	ids := make([]int64, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// IssueBadge issues one badge to a recipient.
func (c *Client) IssueBadge(ctx context.Context, badgeID int64, recipient string) (*IssueResult, error) {
	body := map[string]string{"recipient": recipient}

	raw, err := c.call(ctx, methodPost, fmt.Sprintf("/badges/%d/issue", badgeID), nil, body)
	if err != nil {
		return nil, err
	}

	var result IssueResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &APIError{
			Kind:    ErrKindUnknown,
			Message: fmt.Sprintf("Unknown error. API response: %s", string(raw)),
			Body:    string(raw),
		}
	}
	return &result, nil
}

// CreateBadge creates a badge remotely and returns its new ID.
func (c *Client) CreateBadge(ctx context.Context, req *CreateBadgeRequest) (int64, error) {
	body := map[string]*CreateBadgeRequest{"badge": req}

	raw, err := c.call(ctx, methodPost, "/badges", nil, body)
	if err != nil {
		return 0, err
	}

	var result struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || result.ID == 0 {
		return 0, &APIError{
			Kind:    ErrKindUnknown,
			Message: fmt.Sprintf("Unknown error. API response: %s", string(raw)),
			Body:    string(raw),
		}
	}
	return result.ID, nil
}

// DownloadImage fetches a badge image with a short timeout and a couple of
// retries. Image hosting is flaky enough that a single attempt loses work.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	var data []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.imageClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("image download returned HTTP %d", resp.StatusCode)
		}
		data, err = io.ReadAll(resp.Body)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 15 * time.Second
	err := backoff.RetryNotify(
		backoff.Operation(operation),
		backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx),
		func(err error, d time.Duration) {
			c.logger.Warn("Image download attempt failed",
				zap.String("url", imageURL),
				zap.Error(err),
				zap.Duration("backoff", d),
			)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	return data, nil
}

// call performs one authenticated request and enforces the API contract:
// success requires a parseable JSON body and an HTTP status inside the
// configured success range.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, body interface{}) (json.RawMessage, error) {
	endpoint := c.endpoint + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Kind: ErrKindTransport, Message: fmt.Sprintf("Request encoding failed: %v", err)}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &APIError{Kind: ErrKindTransport, Message: fmt.Sprintf("Request creation failed: %v", err)}
	}
	req.Header.Set("Authorization", "Token token="+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Badge API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, &APIError{Kind: ErrKindTransport, Message: fmt.Sprintf("API request failed: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: ErrKindTransport, Message: fmt.Sprintf("Failed to read API response: %v", err)}
	}

	apiErr := c.classify(resp.StatusCode, raw)
	if apiErr == nil {
		return json.RawMessage(raw), nil
	}

	c.logger.Warn("Badge API call unsuccessful",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("error", apiErr.Message),
	)
	return nil, apiErr
}

// classify turns a response into nil (success) or a structured APIError.
func (c *Client) classify(status int, raw []byte) *APIError {
	var decoded interface{}
	validJSON := len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &decoded) == nil && decoded != nil

	if validJSON && status >= c.successMin && status <= c.successMax {
		return nil
	}

	if !validJSON {
		msg := "Invalid JSON string. "
		if status < c.successMin || status > c.successMax {
			msg += fmt.Sprintf("HTTP error: %d; ", status)
		}
		msg += "API response: " + string(raw)
		return &APIError{Kind: ErrKindBadJSON, StatusCode: status, Message: msg, Body: string(raw)}
	}

	if obj, ok := decoded.(map[string]interface{}); ok {
		if errPayload, ok := obj["error"]; ok {
			return &APIError{
				Kind:       ErrKindAPIError,
				StatusCode: status,
				Message:    "API error. " + flattenErrorPayload(errPayload),
				Body:       string(raw),
			}
		}
	}

	return &APIError{
		Kind:       ErrKindUnknown,
		StatusCode: status,
		Message:    "Unknown error. API response: " + string(raw),
		Body:       string(raw),
	}
}

// flattenErrorPayload renders the nested values of an {error: {...}} payload
// as "key: value; " pairs in stable key order.
func flattenErrorPayload(payload interface{}) string {
	var sb strings.Builder
	switch v := payload.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(flattenErrorValue(v[k]))
			sb.WriteString("; ")
		}
	default:
		sb.WriteString(flattenErrorValue(v))
		sb.WriteString("; ")
	}
	return sb.String()
}

func flattenErrorValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, flattenErrorValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		return flattenErrorPayload(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
