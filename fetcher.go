package fetchqueue

import (
	"context"
	"encoding/json"
)

// Fetcher fetches one catalog endpoint. The Dispatcher calls Fetch exactly once
// per Job and stores whatever it returns.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint Endpoint) (*FetchResult, error)
}

// FetcherFunc is a Fetcher implemented with a callback.
type FetcherFunc func(ctx context.Context, endpoint Endpoint) (*FetchResult, error)

// Fetch implements Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, endpoint Endpoint) (*FetchResult, error) {
	return f(ctx, endpoint)
}

// FetchResult is the decoded response of a catalog endpoint.
type FetchResult struct {
	StatusCode int `json:"status"`
	// Count is the number of items the catalog reports for the endpoint.
	Count int `json:"count"`
	// Results is the listing for a collection, or the whole body otherwise.
	Results json.RawMessage `json:"results"`
	// Pages holds the items split by Endpoint.PageSize. Without a page size
	// there is exactly one page.
	Pages [][]json.RawMessage `json:"-"`
}

// Items returns every item across all pages.
func (r *FetchResult) Items() []json.RawMessage {
	var items []json.RawMessage
	for _, page := range r.Pages {
		items = append(items, page...)
	}
	return items
}

// Paginate splits items into consecutive pages of at most size items. The last
// page may be partial. A size of zero or less yields a single page.
func Paginate(items []json.RawMessage, size int) [][]json.RawMessage {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]json.RawMessage{items}
	}
	pages := make([][]json.RawMessage, 0, (len(items)+size-1)/size)
	for size < len(items) {
		items, pages = items[size:], append(pages, items[0:size:size])
	}
	return append(pages, items)
}
