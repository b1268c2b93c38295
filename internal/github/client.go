// Package github implements the remote document store contract over the
// GitHub contents API. A file's blob SHA doubles as the optimistic
// concurrency token: reads return it, writes must present it, and GitHub
// rejects a write whose SHA no longer matches the branch head.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/mapstatus"
)

const (
	defaultBaseURL = "https://api.github.com"

	requestTimeout = 10 * time.Second
	maxRetries     = 3
)

// Client talks to the contents endpoint of a single repository branch.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	owner      string
	repo       string
	branch     string
	logger     *zap.Logger
}

// NewClient creates a contents-API client for owner/repo on the given branch.
func NewClient(token, owner, repo, branch string, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		token:      token,
		owner:      owner,
		repo:       repo,
		branch:     branch,
		logger:     logger,
	}
}

// SetBaseURL overrides the API host, used by tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// GetFile fetches the file at path and returns its decoded content and blob
// SHA. Transient transport failures are retried with exponential backoff
// before being reported as a NetworkError.
func (c *Client) GetFile(ctx context.Context, path string) ([]byte, string, error) {
	type result struct {
		content  []byte
		revision string
	}

	res, err := backoff.RetryWithData(func() (result, error) {
		endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
			c.baseURL, c.owner, c.repo, path, url.QueryEscape(c.branch))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return result{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return result{}, &mapstatus.NetworkError{Op: "get", Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			// fallthrough to decoding below
		case resp.StatusCode == http.StatusNotFound:
			return result{}, backoff.Permanent(mapstatus.ErrNotFound)
		case resp.StatusCode >= 500:
			return result{}, &mapstatus.NetworkError{Op: "get", Err: fmt.Errorf("server status %d", resp.StatusCode)}
		default:
			return result{}, backoff.Permanent(fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode))
		}

		var body contentsResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return result{}, backoff.Permanent(fmt.Errorf("decode contents response: %w", err))
		}

		content, err := decodeContent(body)
		if err != nil {
			return result{}, backoff.Permanent(err)
		}
		return result{content: content, revision: body.SHA}, nil
	}, c.newBackOff(ctx))
	if err != nil {
		return nil, "", err
	}
	return res.content, res.revision, nil
}

// PutFile writes content to path bound to expectedRevision and returns the
// new blob SHA. An empty expectedRevision creates the file. A SHA mismatch
// is reported as ErrConflict; conflicts are never retried here, the caller
// owns the re-fetch decision.
func (c *Client) PutFile(ctx context.Context, path string, content []byte, expectedRevision string) (string, error) {
	payload, err := json.Marshal(putRequest{
		Message: fmt.Sprintf("genesis: update %s", path),
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     expectedRevision,
	})
	if err != nil {
		return "", fmt.Errorf("encode put request: %w", err)
	}

	return backoff.RetryWithData(func() (string, error) {
		endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, path)

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", &mapstatus.NetworkError{Op: "put", Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			// fallthrough to decoding below
		case resp.StatusCode == http.StatusConflict:
			return "", backoff.Permanent(mapstatus.ErrConflict)
		case resp.StatusCode == http.StatusUnprocessableEntity && bodyMentionsShaMismatch(resp.Body):
			return "", backoff.Permanent(mapstatus.ErrConflict)
		case resp.StatusCode == http.StatusNotFound:
			return "", backoff.Permanent(mapstatus.ErrNotFound)
		case resp.StatusCode >= 500:
			return "", &mapstatus.NetworkError{Op: "put", Err: fmt.Errorf("server status %d", resp.StatusCode)}
		default:
			return "", backoff.Permanent(fmt.Errorf("put %s: unexpected status %d", path, resp.StatusCode))
		}

		var body putResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", backoff.Permanent(fmt.Errorf("decode put response: %w", err))
		}

		c.logger.Debug("Remote file updated",
			zap.String("path", path),
			zap.String("sha", body.Content.SHA),
		)
		return body.Content.SHA, nil
	}, c.newBackOff(ctx))
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// decodeContent handles the base64 payload GitHub returns, which is wrapped
// with newlines every 60 characters.
func decodeContent(body contentsResponse) ([]byte, error) {
	if body.Encoding != "" && body.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported content encoding %q", body.Encoding)
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, body.Content)
	content, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode base64 content: %w", err)
	}
	return content, nil
}

// bodyMentionsShaMismatch checks a 422 body for GitHub's stale-SHA wording.
func bodyMentionsShaMismatch(body io.Reader) bool {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return false
	}
	text := strings.ToLower(string(data))
	return strings.Contains(text, "does not match") || strings.Contains(text, "sha")
}
