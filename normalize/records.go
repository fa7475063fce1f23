package normalize

import (
	"fmt"
	"strconv"

	"github.com/gahuily/LawChat/models"
)

// Schema names in the mapping table
const (
	SchemaLaw       = "law"
	SchemaPrecedent = "prec"
	SchemaLegalQA   = "legalqa"
)

// Normalizer turns raw external records into internal records
type Normalizer struct {
	table Table
}

// New creates a normalizer over the given table; nil uses the embedded one.
func New(table Table) *Normalizer {
	if table == nil {
		table = Default()
	}
	return &Normalizer{table: table}
}

// Law maps a lawSearch list item. A missing identifier leaves LawID empty.
func (n *Normalizer) Law(raw map[string]any) models.LawRecord {
	f := n.table[SchemaLaw].Apply(raw)
	return models.LawRecord{
		LawID:            deref(f["law_id"]),
		LawNameKor:       f["law_name_kor"],
		LawType:          f["law_type"],
		PromulgationDate: f["promulgation_date"],
		EnforcementDate:  f["enforcement_date"],
	}
}

// Precedent maps a precedent list item or detail block.
func (n *Normalizer) Precedent(raw map[string]any) models.PrecedentRecord {
	f := n.table[SchemaPrecedent].Apply(raw)
	return models.PrecedentRecord{
		PrecID:       deref(f["prec_id"]),
		CaseNo:       f["case_no"],
		CaseName:     f["case_name"],
		CourtName:    f["court_name"],
		JudgmentDate: f["judgment_date"],
		CaseType:     f["case_type"],
		Summary:      f["summary"],
		FullText:     f["full_text"],
	}
}

// LegalQA maps one line of the LegalQA / easylaw datasets. Numeric ids are
// zero-padded into the "<prefix>_%06d" form; an empty prefix falls back to source.
func (n *Normalizer) LegalQA(source, prefix string, raw map[string]any) models.QnARecord {
	if prefix == "" {
		prefix = source
	}
	f := n.table[SchemaLegalQA].Apply(raw)
	rec := models.QnARecord{
		Source:   source,
		URL:      f["url"],
		Category: f["category"],
		Question: f["question"],
		Answer:   f["answer"],
	}
	if id := deref(f["qna_id"]); id != "" {
		if num, err := strconv.Atoi(id); err == nil {
			rec.QnaID = fmt.Sprintf("%s_%06d", prefix, num)
		} else {
			rec.QnaID = prefix + "_" + id
		}
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
