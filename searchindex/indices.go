package searchindex

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Field types used in mappings
const (
	TypeText    = "text"
	TypeKeyword = "keyword"
	TypeDate    = "date"
)

// DateFormat accepts the stored YYYYMMDD form and ISO dates
const DateFormat = "yyyyMMdd||yyyy-MM-dd||strict_date_optional_time"

// SyncField stamps each document with the resync run that wrote it
const SyncField = "sync_id"

// Field is one mapped document field
type Field struct {
	Name string
	Type string
}

// Index describes an index, its mapping and its weighted search fields
type Index struct {
	Name          string
	IDField       string
	Fields        []Field
	SearchFields  []string // multi_match fields with ^boosts
	SourceExclude []string // stored fields left out of search hits
}

// Precedents is the court precedent index
var Precedents = Index{
	Name:    "precedents",
	IDField: "prec_id",
	Fields: []Field{
		{"prec_id", TypeKeyword},
		{"case_no", TypeKeyword},
		{"case_name", TypeText},
		{"court_name", TypeKeyword},
		{"judgment_date", TypeDate},
		{"case_type", TypeKeyword},
		{"summary", TypeText},
		{"full_text", TypeText},
	},
	SearchFields:  []string{"case_name^3", "summary^2", "full_text"},
	SourceExclude: []string{"full_text", SyncField},
}

// Laws is the statute index
var Laws = Index{
	Name:    "laws",
	IDField: "law_id",
	Fields: []Field{
		{"law_id", TypeKeyword},
		{"law_name_kor", TypeText},
		{"law_type", TypeKeyword},
		{"promulgation_date", TypeDate},
		{"enforcement_date", TypeDate},
	},
	SearchFields:  []string{"law_name_kor^3", "law_type^2"},
	SourceExclude: []string{SyncField},
}

// LegalQnA is the Q&A index
var LegalQnA = Index{
	Name:    "legal_qna",
	IDField: "qna_id",
	Fields: []Field{
		{"qna_id", TypeKeyword},
		{"source", TypeKeyword},
		{"url", TypeKeyword},
		{"category", TypeText},
		{"question", TypeText},
		{"answer", TypeText},
	},
	SearchFields:  []string{"question^3", "category^2", "answer"},
	SourceExclude: []string{SyncField},
}

// Body returns the create-index request body: a nori based "korean" analyzer
// and the field mapping.
func (ix Index) Body() map[string]any {
	props := make(map[string]any, len(ix.Fields)+1)
	for _, f := range ix.Fields {
		switch f.Type {
		case TypeText:
			props[f.Name] = map[string]any{"type": TypeText, "analyzer": "korean"}
		case TypeDate:
			props[f.Name] = map[string]any{"type": TypeDate, "format": DateFormat}
		default:
			props[f.Name] = map[string]any{"type": f.Type}
		}
	}
	props[SyncField] = map[string]any{"type": TypeKeyword}

	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"korean": map[string]any{
						"type":      "custom",
						"tokenizer": "nori_tokenizer",
						"filter":    []string{"lowercase", "nori_part_of_speech"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": props,
		},
	}
}

// EnsureIndex creates the index when it does not exist. It reports whether
// the index was created by this call.
func (c *Client) EnsureIndex(ctx context.Context, ix Index) (bool, error) {
	res, err := c.es.Indices.Exists([]string{ix.Name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index %s: %w", ix.Name, err)
	}
	drain(res)
	if res.StatusCode == 200 {
		log.Debug().Str("index", ix.Name).Msg("Index already exists")
		return false, nil
	}
	if res.StatusCode != 404 {
		return false, &ResponseError{StatusCode: res.StatusCode}
	}

	body, err := encodeBody(ix.Body())
	if err != nil {
		return false, err
	}
	res, err = c.es.Indices.Create(ix.Name,
		c.es.Indices.Create.WithBody(body),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create index %s: %w", ix.Name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		rerr := responseError(res)
		// Lost a race with another creator.
		if re, ok := rerr.(*ResponseError); ok && re.Type == "resource_already_exists_exception" {
			return false, nil
		}
		return false, fmt.Errorf("failed to create index %s: %w", ix.Name, rerr)
	}

	log.Info().Str("index", ix.Name).Msg("Index created")
	return true, nil
}
