package models

// QnARecord represents a legal question/answer pair in the legal_qna table
type QnARecord struct {
	QnaID    string  `json:"qna_id"`
	Source   string  `json:"source"`
	URL      *string `json:"url"`
	Category *string `json:"category"`
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

// ExternalID returns the conflict key and document ID
func (q QnARecord) ExternalID() string {
	return q.QnaID
}
