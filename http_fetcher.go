package fetchqueue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// DefaultBaseURL is the catalog the HTTPFetcher talks to when BaseURL is empty.
const DefaultBaseURL = "https://www.dnd5eapi.co/api"

var (
	// ErrUnexpectedStatus is returned when the catalog answers with a status
	// other than 200 or 404.
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrMalformedResponse is returned when the body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher fetches endpoints from the catalog over HTTP.
//
// Both 200 and 404 are regular answers: a 404 carries the catalog's error body
// in Results and a zero Count. Any other status is reported as
// ErrUnexpectedStatus along with an empty result.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
	Logger  log.Logger
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint Endpoint) (*FetchResult, error) {
	url := f.url(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "new request for %s", url)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read body of %s", url)
	}

	result := &FetchResult{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		if json.Valid(body) {
			result.Results = body
		}
		return result, nil
	default:
		_ = level.Warn(f.logger()).Log("msg", "invalid response from catalog", "url", url, "status", resp.StatusCode)
		return result, errors.Wrapf(ErrUnexpectedStatus, "GET %s: %d", url, resp.StatusCode)
	}

	items, err := decode(endpoint, body, result)
	if err != nil {
		return result, errors.Wrapf(err, "GET %s", url)
	}
	result.Pages = Paginate(items, endpoint.PageSize)
	return result, nil
}

// decode fills Count and Results from a 200 body and returns the items to
// paginate.
func decode(endpoint Endpoint, body []byte, result *FetchResult) ([]json.RawMessage, error) {
	switch {
	case endpoint.Collection == "":
		var index map[string]json.RawMessage
		if err := json.Unmarshal(body, &index); err != nil {
			return nil, errors.Wrap(ErrMalformedResponse, err.Error())
		}
		result.Count = len(index)
		result.Results = body
		return []json.RawMessage{body}, nil

	case endpoint.Key == "":
		var listing struct {
			Count   int             `json:"count"`
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(body, &listing); err != nil {
			return nil, errors.Wrap(ErrMalformedResponse, err.Error())
		}
		var items []json.RawMessage
		if len(listing.Results) > 0 {
			if err := json.Unmarshal(listing.Results, &items); err != nil {
				return nil, errors.Wrap(ErrMalformedResponse, err.Error())
			}
		}
		result.Count = listing.Count
		result.Results = listing.Results
		return items, nil

	default:
		if !json.Valid(body) {
			return nil, ErrMalformedResponse
		}
		result.Count = 1
		result.Results = body
		return []json.RawMessage{body}, nil
	}
}

func (f *HTTPFetcher) url(endpoint Endpoint) string {
	base := f.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/")
	if endpoint.Collection == "" {
		return base + "/"
	}
	return base + "/" + endpoint.Path()
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *HTTPFetcher) logger() log.Logger {
	if f.Logger == nil {
		return log.NewNopLogger()
	}
	return f.Logger
}
