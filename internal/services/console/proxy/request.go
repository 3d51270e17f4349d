package proxy

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/paydeck/internal/services/console/platform/errors"
	"github.com/louisbranch/paydeck/internal/services/console/platform/httpx"
)

// wireRequest is the POST body shape. Params arrive as arbitrary JSON
// scalars and are normalized to strings for the upstream query.
type wireRequest struct {
	Endpoint string         `json:"endpoint"`
	Method   string         `json:"method"`
	Data     map[string]any `json:"data"`
	Params   map[string]any `json:"params"`
}

// ParseHTTPRequest extracts a proxy request from either surface the console
// exposes: a JSON POST body, or GET query parameters where every key except
// endpoint and method becomes a param.
func ParseHTTPRequest(r *http.Request) (Request, error) {
	switch r.Method {
	case http.MethodGet:
		return parseQueryRequest(r)
	case http.MethodPost:
		return parseBodyRequest(r)
	default:
		return Request{}, apperrors.E(apperrors.KindValidation, "proxy accepts GET or POST")
	}
}

func parseBodyRequest(r *http.Request) (Request, error) {
	var wire wireRequest
	if err := httpx.ReadJSON(r, &wire); err != nil {
		return Request{}, apperrors.E(apperrors.KindValidation, "malformed proxy request body")
	}

	params, err := stringifyParams(wire.Params)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Endpoint: wire.Endpoint,
		Method:   wire.Method,
		Data:     wire.Data,
		Params:   params,
	}, nil
}

func parseQueryRequest(r *http.Request) (Request, error) {
	query := r.URL.Query()
	req := Request{
		Endpoint: query.Get("endpoint"),
		Method:   query.Get("method"),
	}
	for key, values := range query {
		if key == "endpoint" || key == "method" {
			continue
		}
		if len(values) == 0 {
			continue
		}
		if req.Params == nil {
			req.Params = make(map[string]string)
		}
		req.Params[key] = values[0]
	}
	return req, nil
}

// stringifyParams flattens JSON scalars into query-string values. Nested
// structures are rejected rather than silently serialized.
func stringifyParams(params map[string]any) (map[string]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(params))
	for key, value := range params {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			out[key] = v
		case bool:
			out[key] = strconv.FormatBool(v)
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, apperrors.E(
				apperrors.KindValidation,
				"param "+strings.TrimSpace(key)+" must be a scalar value",
			)
		}
	}
	return out, nil
}
