package lawapi

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/gahuily/LawChat/models"
)

// DefaultDisplay is the page size used when none is given
const DefaultDisplay = 100

// ExtractOptions selects what a list extraction fetches
type ExtractOptions struct {
	Target   models.EntityType
	Query    string
	Display  int
	MaxPages int // 0 means no cap
}

// Extract returns a lazy sequence over every record of the list endpoint.
// Each range over the sequence starts again from page 1. An upstream or
// decoding failure is yielded once as an error and ends the sequence.
func (c *Client) Extract(ctx context.Context, opts ExtractOptions) iter.Seq2[RawRecord, error] {
	display := opts.Display
	if display <= 0 {
		display = DefaultDisplay
	}

	return func(yield func(RawRecord, error) bool) {
		consumed := 0
		for page := 1; opts.MaxPages <= 0 || page <= opts.MaxPages; page++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			params := url.Values{}
			params.Set("target", string(opts.Target))
			params.Set("display", strconv.Itoa(display))
			params.Set("page", strconv.Itoa(page))
			if opts.Query != "" {
				params.Set("query", opts.Query)
			}

			data, err := c.getJSON(ctx, searchPath, params, c.archiveKey(string(opts.Target), fmt.Sprintf("list-%04d", page)))
			if err != nil {
				yield(nil, fmt.Errorf("page %d: %w", page, err))
				return
			}

			located, ok := LocatePage(opts.Target, data)
			if !ok {
				log.Warn().
					Str("target", string(opts.Target)).
					Int("page", page).
					Strs("keys", TopLevelKeys(data)).
					Msg("Record list not found in response, stopping extraction")
				return
			}
			if len(located.Items) == 0 {
				if located.TotalKnown && consumed < located.Total {
					log.Warn().
						Str("target", string(opts.Target)).
						Str("variant", located.Variant).
						Int("page", page).
						Int("consumed", consumed).
						Int("total", located.Total).
						Strs("keys", TopLevelKeys(data)).
						Msg("Total reports more records but no list was found, stopping extraction")
					return
				}
				log.Debug().Str("target", string(opts.Target)).Int("page", page).Msg("Empty page, extraction complete")
				return
			}

			log.Debug().
				Str("target", string(opts.Target)).
				Str("variant", located.Variant).
				Int("page", page).
				Int("items", len(located.Items)).
				Int("total", located.Total).
				Msg("Fetched page")

			for _, item := range located.Items {
				consumed++
				if !yield(item, nil) {
					return
				}
			}

			if located.TotalKnown {
				if consumed >= located.Total {
					return
				}
			} else if len(located.Items) < display {
				return
			}
		}
	}
}
