package pagination

import (
	"context"
	"log/slog"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
)

// DefaultMaxPages caps a single FetchAll call when no limit is configured.
const DefaultMaxPages = 10000

// Fetcher drives a PageSource until the collection is exhausted.
type Fetcher struct {
	maxPages int
	logger   *slog.Logger
}

// NewFetcher creates a fetcher that gives up after maxPages pages.
// A non-positive maxPages selects DefaultMaxPages.
func NewFetcher(maxPages int, logger *slog.Logger) *Fetcher {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Fetcher{
		maxPages: maxPages,
		logger:   logger,
	}
}

// FetchAll requests pages strictly in sequence and returns every record in
// page order. Any error discards the pages accumulated so far.
func (f *Fetcher) FetchAll(ctx context.Context, src PageSource, endpoint, authToken string, style Style) ([]model.Record, error) {
	if endpoint == "" {
		return nil, &model.PreconditionError{Field: "endpoint", Reason: "is empty"}
	}
	if authToken == "" {
		return nil, &model.PreconditionError{Field: "auth token", Reason: "is empty"}
	}

	records := make([]model.Record, 0)
	seen := make(map[string]struct{})
	token := ""

	for pages := 0; ; pages++ {
		if err := ctx.Err(); err != nil {
			return nil, &model.CancelledError{Err: err}
		}
		if pages >= f.maxPages {
			return nil, &model.ProtocolError{Err: model.ErrPageLimit, Pages: pages}
		}

		page, err := src.Fetch(ctx, endpoint, authToken, style, token)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)

		f.logger.Debug("page fetched",
			"endpoint", endpoint,
			"style", style.Name(),
			"page", pages+1,
			"records", len(page.Records),
			"total", len(records),
		)

		if !page.HasNext() {
			return records, nil
		}
		if _, dup := seen[page.NextToken]; dup {
			return nil, &model.ProtocolError{Err: model.ErrTokenCycle, Token: page.NextToken, Pages: pages + 1}
		}
		seen[page.NextToken] = struct{}{}
		token = page.NextToken
	}
}
