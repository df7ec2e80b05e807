package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
)

// Envelope is the JSON body shared by the collection endpoints. Link-style
// endpoints fill Links.Next, cursor-style endpoints fill Cursor.
type Envelope struct {
	Data   []model.Record `json:"data"`
	Links  *Links         `json:"links,omitempty"`
	Cursor string         `json:"cursor,omitempty"`
}

// Links holds navigation URLs of a link-style page.
type Links struct {
	Next string `json:"next,omitempty"`
}

// Style is the strategy a collection uses to chain its pages.
type Style interface {
	// Name returns the style identifier used in logs.
	Name() string

	// RequestURL builds the URL for the page identified by token. The
	// token is empty for the first page.
	RequestURL(endpoint, token string) (string, error)

	// NextToken extracts the continuation token from a decoded page.
	// An empty result ends pagination.
	NextToken(env *Envelope) string
}

// LinkStyle follows a complete next-page URL embedded in each response.
type LinkStyle struct {
	// Limit is sent as the page size parameter on the first request.
	// Zero omits the parameter.
	Limit int
}

func (LinkStyle) Name() string { return "link" }

func (s LinkStyle) RequestURL(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if token != "" {
		next, err := url.Parse(token)
		if err != nil {
			return "", &model.MalformedResponseError{URL: endpoint, Err: fmt.Errorf("invalid next link %q: %w", token, err)}
		}
		// A relative link is resolved against the collection endpoint.
		return u.ResolveReference(next).String(), nil
	}
	if s.Limit > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(s.Limit))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (LinkStyle) NextToken(env *Envelope) string {
	if env.Links == nil {
		return ""
	}
	return env.Links.Next
}

// CursorStyle passes an opaque cursor from each response as a query
// parameter of the following request.
type CursorStyle struct {
	// Limit is sent as the page size parameter on every request. Zero
	// omits the parameter.
	Limit int
}

func (CursorStyle) Name() string { return "cursor" }

func (s CursorStyle) RequestURL(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	if s.Limit > 0 {
		q.Set("limit", strconv.Itoa(s.Limit))
	}
	if token != "" {
		q.Set("cursor", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (CursorStyle) NextToken(env *Envelope) string {
	return env.Cursor
}
