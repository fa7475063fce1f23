package models

// PrecedentRecord represents a court precedent row in the precedents table.
// FullText is only populated through the detail lookup.
type PrecedentRecord struct {
	PrecID       string  `json:"prec_id"`
	CaseNo       *string `json:"case_no"`
	CaseName     *string `json:"case_name"`
	CourtName    *string `json:"court_name"`
	JudgmentDate *string `json:"judgment_date"` // YYYYMMDD
	CaseType     *string `json:"case_type"`
	Summary      *string `json:"summary"`
	FullText     *string `json:"full_text"`
}

// ExternalID returns the conflict key and document ID
func (p PrecedentRecord) ExternalID() string {
	return p.PrecID
}
