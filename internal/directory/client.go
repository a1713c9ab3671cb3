package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Client is the HTTP implementation of Authorizer against the directory
// service's membership endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// IsGroupMember resolves GET /groups/<gid>/members/<uid>. 200 means
// member, 404 means not a member; anything else is a lookup failure the
// caller must treat as "join rejected", never as silently granted.
func (c *Client) IsGroupMember(ctx context.Context, userID, groupID string) (bool, error) {
	u := fmt.Sprintf("%s/groups/%s/members/%s",
		c.baseURL, url.PathEscape(groupID), url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("build membership request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		log.Warn().Str("module", "directory").Int("status", resp.StatusCode).Str("group", groupID).Str("user", userID).Msg("unexpected membership status")
		return false, fmt.Errorf("membership lookup: status %d", resp.StatusCode)
	}
}
