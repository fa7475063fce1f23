package models

// EntityType identifies a record type on the law.go.kr DRF API ("target" parameter)
type EntityType string

const (
	EntityLaw       EntityType = "law"
	EntityPrecedent EntityType = "prec"
)

// LawRecord represents a statute row in the laws table
type LawRecord struct {
	LawID            string  `json:"law_id"`
	LawNameKor       *string `json:"law_name_kor"`
	LawType          *string `json:"law_type"`
	PromulgationDate *string `json:"promulgation_date"` // YYYYMMDD
	EnforcementDate  *string `json:"enforcement_date"`  // YYYYMMDD
}

// ExternalID returns the conflict key and document ID
func (l LawRecord) ExternalID() string {
	return l.LawID
}
