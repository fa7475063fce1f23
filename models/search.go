package models

// PrecedentHit is a ranked precedent returned by GET /search
type PrecedentHit struct {
	PrecID       string  `json:"prec_id"`
	CaseNo       *string `json:"case_no"`
	CaseName     *string `json:"case_name"`
	CourtName    *string `json:"court_name"`
	JudgmentDate *string `json:"judgment_date"`
	Summary      *string `json:"summary"`
	Score        float64 `json:"score"`
}

// LawHit is a ranked statute returned by GET /search/laws
type LawHit struct {
	LawRecord
	Score float64 `json:"score"`
}

// QnAHit is a ranked Q&A pair returned by GET /search/qna
type QnAHit struct {
	QnARecord
	Score float64 `json:"score"`
}
