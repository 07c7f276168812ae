package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	dErrors "nlportal/pkg/domain-errors"
	"nlportal/pkg/platform/sentinel"
	"nlportal/pkg/requestcontext"
)

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 64 << 10

// Client issues calls to one registry on behalf of one principal.
type Client struct {
	registry string
	base     *url.URL
	http     *http.Client
	logger   *slog.Logger
}

// Registry returns the registry name.
func (c *Client) Registry() string { return c.registry }

// Resolve turns ref into an absolute URL. Relative refs are joined to the
// base URL. Absolute refs must share its scheme and host and sit under its
// path, so another API on the same host never receives these credentials.
func (c *Client) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, fmt.Sprintf("registry %s: invalid reference", c.registry))
	}
	if u.IsAbs() {
		if !sameOrigin(c.base, u) {
			return nil, dErrors.Wrap(sentinel.ErrForeignHost, dErrors.CodeConfiguration,
				fmt.Sprintf("registry %s: reference host %s is outside %s", c.registry, u.Host, c.base.Host))
		}
		if !underBasePath(c.base, u) {
			return nil, dErrors.Wrap(sentinel.ErrForeignHost, dErrors.CodeConfiguration,
				fmt.Sprintf("registry %s: reference path %s is outside %s", c.registry, u.Path, c.base.Path))
		}
		return u, nil
	}
	resolved := c.base.JoinPath(u.Path)
	resolved.RawQuery = u.RawQuery
	return resolved, nil
}

func sameOrigin(base, u *url.URL) bool {
	return strings.EqualFold(base.Scheme, u.Scheme) && strings.EqualFold(base.Host, u.Host)
}

func underBasePath(base, u *url.URL) bool {
	prefix := strings.TrimSuffix(base.Path, "/")
	if prefix == "" {
		return true
	}
	return u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}

// NewRequest builds a request for ref. query is merged into the ref's own
// query string; body is JSON encoded when non-nil.
func (c *Client) NewRequest(ctx context.Context, method, ref string, query url.Values, body any) (*http.Request, error) {
	u, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build registry request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do executes req. Non-2xx responses are returned as *DownstreamError with
// the body drained; on success the caller closes the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "registry call failed",
			"request_id", requestcontext.RequestID(ctx),
			"method", req.Method,
			"path", req.URL.Path,
			"error", err,
		)
		return nil, newTransportError(c.registry, req, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "registry returned error status",
			"request_id", requestcontext.RequestID(ctx),
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
		)
		return nil, newStatusError(c.registry, req, resp.StatusCode, body)
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, method, ref string, query url.Values, body, out any) error {
	req, err := c.NewRequest(ctx, method, ref, query, body)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadGateway, fmt.Sprintf("registry %s: malformed response", c.registry))
	}
	return nil
}

// Get fetches ref and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, ref string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, ref, query, nil, out)
}

// Post sends body as JSON to ref and decodes the response into out.
func (c *Client) Post(ctx context.Context, ref string, body, out any) error {
	return c.call(ctx, http.MethodPost, ref, nil, body, out)
}

// Patch sends body as JSON to ref and decodes the response into out.
func (c *Client) Patch(ctx context.Context, ref string, body, out any) error {
	return c.call(ctx, http.MethodPatch, ref, nil, body, out)
}
