package gateway

import (
	"context"
	"net/url"

	"nlportal/pkg/requestcontext"
)

// DefaultMaxPages caps CollectPages when maxPages <= 0.
const DefaultMaxPages = 20

// Page is the ZGW list envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// CollectPages follows next links from ref and returns all results, up to
// maxPages pages.
func CollectPages[T any](ctx context.Context, c *Client, ref string, query url.Values, maxPages int) ([]T, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	var all []T
	for i := 0; i < maxPages && ref != ""; i++ {
		var page Page[T]
		if err := c.Get(ctx, ref, query, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		ref, query = "", nil
		if page.Next != nil {
			ref = *page.Next
		}
	}
	if ref != "" {
		c.logger.WarnContext(ctx, "page limit reached, results truncated",
			"request_id", requestcontext.RequestID(ctx),
			"max_pages", maxPages,
			"collected", len(all),
		)
	}
	return all, nil
}
