package miro

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ogulcanaydogan/miro-guardian/pkg/model"
	"github.com/ogulcanaydogan/miro-guardian/pkg/pagination"
)

// DefaultBaseURL is the public Miro REST API.
const DefaultBaseURL = "https://api.miro.com"

// DefaultBoardLimit is the page size requested from the boards endpoint.
const DefaultBoardLimit = 50

// Client lists Miro collections on behalf of a single bearer token.
type Client struct {
	baseURL    string
	token      string
	boardLimit int
	source     pagination.PageSource
	fetcher    *pagination.Fetcher
	logger     *slog.Logger
}

// NewClient creates a client. The token is read once and never changes for
// the life of the client.
func NewClient(baseURL, token string, boardLimit int, source pagination.PageSource, fetcher *pagination.Fetcher, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &model.PreconditionError{Field: "api token", Reason: "is required"}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, &model.PreconditionError{Field: "base url", Reason: err.Error()}
	}
	if boardLimit <= 0 {
		boardLimit = DefaultBoardLimit
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		boardLimit: boardLimit,
		source:     source,
		fetcher:    fetcher,
		logger:     logger,
	}, nil
}

// BoardsURL returns the boards collection endpoint.
func (c *Client) BoardsURL() string {
	return c.baseURL + "/v2/boards"
}

// MembersURL returns the member collection endpoint of an organization.
func (c *Client) MembersURL(orgID string) string {
	return c.baseURL + "/v2/orgs/" + url.PathEscape(orgID) + "/members"
}

// ListBoards returns every board visible to the token.
func (c *Client) ListBoards(ctx context.Context) ([]model.Record, error) {
	boards, err := c.fetcher.FetchAll(ctx, c.source, c.BoardsURL(), c.token, pagination.LinkStyle{Limit: c.boardLimit})
	if err != nil {
		return nil, fmt.Errorf("fetch boards: %w", err)
	}
	c.logger.Info("boards fetched", "count", len(boards))
	return boards, nil
}

// ListMembers returns every member of the organization.
func (c *Client) ListMembers(ctx context.Context, orgID string) ([]model.Record, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, &model.PreconditionError{Field: "organization id", Reason: "is required"}
	}
	members, err := c.fetcher.FetchAll(ctx, c.source, c.MembersURL(orgID), c.token, pagination.CursorStyle{})
	if err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	c.logger.Info("members fetched", "org", orgID, "count", len(members))
	return members, nil
}
