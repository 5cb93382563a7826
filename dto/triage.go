package dto

type TriageResult struct {
	Path       string `json:"path"`
	ArchiveURL string `json:"archive_url,omitempty"`
	Success    bool   `json:"success"`
	Classified int    `json:"classified"`
	Marked     int    `json:"marked"`
	Failed     int    `json:"failed"`
}

type FetchResult struct {
	Skipped            bool `json:"skipped"`
	Found              int  `json:"found"`
	Stored             int  `json:"stored"`
	Duplicates         int  `json:"duplicates"`
	Failed             int  `json:"failed"`
	AttachmentsStored  int  `json:"attachments_stored"`
	AttachmentsSkipped int  `json:"attachments_skipped"`
}

type StoreStats struct {
	Total       int64            `json:"total"`
	Unprocessed int64            `json:"unprocessed"`
	ByStatus    map[string]int64 `json:"by_status"`
}
