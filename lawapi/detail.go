package lawapi

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/gahuily/LawChat/models"
)

// ErrDetailNotFound is returned when a lawService response has no detail block
var ErrDetailNotFound = errors.New("detail block not found")

// Detail fetches the full record for one external identifier.
func (c *Client) Detail(ctx context.Context, target models.EntityType, id string) (RawRecord, error) {
	params := url.Values{}
	params.Set("target", string(target))
	params.Set("ID", id)

	data, err := c.getJSON(ctx, servicePath, params, c.archiveKey(string(target), "detail-"+id))
	if err != nil {
		return nil, err
	}

	block, variant := LocateDetail(target, data)
	if block == nil {
		log.Debug().Str("target", string(target)).Str("id", id).Strs("keys", TopLevelKeys(data)).Msg("No detail block in response")
		return nil, ErrDetailNotFound
	}
	log.Debug().Str("target", string(target)).Str("id", id).Str("variant", variant).Msg("Fetched detail")
	return block, nil
}

// FetchPage fetches a single list page without paging further; used to
// inspect live responses.
func (c *Client) FetchPage(ctx context.Context, target models.EntityType, query string, display int) (map[string]any, error) {
	params := url.Values{}
	params.Set("target", string(target))
	params.Set("page", "1")
	if display > 0 {
		params.Set("display", strconv.Itoa(display))
	}
	if query != "" {
		params.Set("query", query)
	}
	return c.getJSON(ctx, searchPath, params, c.archiveKey(string(target), "probe"))
}
