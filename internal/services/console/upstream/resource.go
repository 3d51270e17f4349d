package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
)

// ResourceResult is the structured outcome of a proxied resource call. Data
// holds the upstream response body verbatim so the dispatcher can relay it
// without reshaping.
type ResourceResult struct {
	Success        bool
	Status         int
	FailureKind    apperrors.Kind
	FailureMessage string
	Data           json.RawMessage
}

// Do performs an authorized upstream resource call on behalf of the proxy
// dispatcher. GET requests carry params in the query string; other methods
// send the body as JSON. The access token rides as the bearer.
func (c *Client) Do(ctx context.Context, accessToken, method, path string, body map[string]any, query url.Values) (ResourceResult, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if method != http.MethodGet && len(body) > 0 {
		encoded, err := json.Marshal(body)
		if err != nil {
			return ResourceResult{}, fmt.Errorf("encode resource payload: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return ResourceResult{}, fmt.Errorf("build resource request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ResourceResult{}, apperrors.EK(
			apperrors.KindUpstreamUnavailable,
			"console.upstream.error_unavailable",
			fmt.Sprintf("upstream request failed: %v", err),
		)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ResourceResult{}, apperrors.EK(
			apperrors.KindUpstreamUnavailable,
			"console.upstream.error_unavailable",
			fmt.Sprintf("read upstream response: %v", err),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind, message := decodeFailure(resp.StatusCode, data, resourceFailureKind(resp.StatusCode))
		return ResourceResult{Status: resp.StatusCode, FailureKind: kind, FailureMessage: message}, nil
	}
	return ResourceResult{Success: true, Status: resp.StatusCode, Data: data}, nil
}

// resourceFailureKind picks the taxonomy fallback for resource rejections.
// An expired bearer surfaces as a session problem so guards can react; other
// statuses pass through with the upstream's own classification.
func resourceFailureKind(status int) apperrors.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.KindSessionExpired
	case status == http.StatusBadRequest:
		return apperrors.KindValidation
	case status >= http.StatusInternalServerError:
		return apperrors.KindUpstreamUnavailable
	default:
		return apperrors.KindUnknown
	}
}
