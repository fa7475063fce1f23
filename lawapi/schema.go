package lawapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gahuily/LawChat/models"
)

// ResponseVariant describes one known response shape of the DRF API. The
// discriminator is the single root key wrapping the payload.
type ResponseVariant struct {
	Name      string
	Version   int
	Target    models.EntityType
	Root      string
	TotalKey  string
	ListKey   string
	DetailKey string // distinguishing field of a detail block
}

// ListVariants are the known lawSearch.do shapes
var ListVariants = []ResponseVariant{
	{Name: "law-search", Version: 1, Target: models.EntityLaw, Root: "LawSearch", TotalKey: "totalCnt", ListKey: "law"},
	{Name: "prec-search", Version: 1, Target: models.EntityPrecedent, Root: "PrecSearch", TotalKey: "totalCnt", ListKey: "prec"},
}

// DetailVariants are the known lawService.do shapes
var DetailVariants = []ResponseVariant{
	{Name: "prec-service", Version: 1, Target: models.EntityPrecedent, Root: "PrecService", DetailKey: "판례내용"},
	{Name: "prec-service-legacy", Version: 0, Target: models.EntityPrecedent, Root: "판례", DetailKey: "판례내용"},
}

// totalKeys are recognised total-count keys for structural probing
var totalKeys = []string{"totalCnt", "totalcnt", "TotalCnt"}

// Page is one located list page
type Page struct {
	Variant    string
	Total      int
	TotalKnown bool
	Items      []RawRecord
}

// LocatePage finds the total count and record list in a lawSearch response.
// The variant whose root key is present wins; otherwise the payload is probed
// structurally. ok is false when no record list could be located.
func LocatePage(target models.EntityType, data map[string]any) (Page, bool) {
	for _, v := range ListVariants {
		if v.Target != target {
			continue
		}
		block, isObj := data[v.Root].(map[string]any)
		if !isObj {
			continue
		}
		page := Page{Variant: v.Name}
		page.Total, page.TotalKnown = parseCount(block[v.TotalKey])
		page.Items = asRecords(block[v.ListKey])
		if len(page.Items) == 0 {
			page.Items = nestedList(block)
		}
		// A recognised envelope without any list means an empty page.
		return page, true
	}
	return probePage(data)
}

// probePage looks for a total and a record list without knowing the root key.
// Nested objects carrying a total are preferred; keys are visited in sorted
// order so the outcome does not depend on map iteration.
func probePage(data map[string]any) (Page, bool) {
	page := Page{Variant: "probe"}

	candidates := []map[string]any{data}
	for _, k := range sortedKeys(data) {
		if block, isObj := data[k].(map[string]any); isObj {
			candidates = append(candidates, block)
		}
	}

	for _, block := range candidates {
		total, ok := findTotal(block)
		if !ok {
			continue
		}
		page.Total, page.TotalKnown = total, true
		if items := listIn(block); len(items) > 0 {
			page.Items = items
			return page, true
		}
		break
	}

	for _, block := range candidates {
		if items := listIn(block); len(items) > 0 {
			page.Items = items
			return page, true
		}
	}
	return page, page.TotalKnown
}

// listIn returns the first list of objects found directly under block.
func listIn(block map[string]any) []RawRecord {
	for _, k := range sortedKeys(block) {
		if list, isList := block[k].([]any); isList {
			if items := asRecords(list); len(items) > 0 {
				return items
			}
		}
	}
	return nil
}

// nestedList looks for a record list directly under block, then one level
// down inside its nested objects ("법령정보" -> "판례목록").
func nestedList(block map[string]any) []RawRecord {
	if items := listIn(block); len(items) > 0 {
		return items
	}
	for _, k := range sortedKeys(block) {
		if inner, isObj := block[k].(map[string]any); isObj {
			if items := listIn(inner); len(items) > 0 {
				return items
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LocateDetail finds the detail block of a lawService response, or nil.
func LocateDetail(target models.EntityType, data map[string]any) (RawRecord, string) {
	for _, v := range DetailVariants {
		if v.Target != target {
			continue
		}
		if block, isObj := data[v.Root].(map[string]any); isObj {
			return block, v.Name
		}
	}
	for _, v := range DetailVariants {
		if v.Target != target {
			continue
		}
		for _, k := range sortedKeys(data) {
			if block, isObj := data[k].(map[string]any); isObj {
				if _, has := block[v.DetailKey]; has {
					return block, "probe"
				}
			}
		}
	}
	return nil, ""
}

func findTotal(block map[string]any) (int, bool) {
	for _, key := range totalKeys {
		if v, has := block[key]; has {
			return parseCount(v)
		}
	}
	return 0, false
}

// asRecords accepts a list of objects, or a lone object standing in for a
// one-element list.
func asRecords(v any) []RawRecord {
	switch t := v.(type) {
	case []any:
		out := make([]RawRecord, 0, len(t))
		for _, item := range t {
			if rec, ok := item.(map[string]any); ok {
				out = append(out, rec)
			}
		}
		return out
	case map[string]any:
		return []RawRecord{t}
	default:
		return nil
	}
}

func parseCount(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

// TopLevelKeys describes a response's outer shape for diagnostics.
func TopLevelKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for k, v := range data {
		keys = append(keys, fmt.Sprintf("%s(%T)", k, v))
	}
	sort.Strings(keys)
	return keys
}
