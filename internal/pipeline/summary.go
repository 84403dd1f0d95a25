package pipeline

import "time"

// LevelResult describes what happened to one level page.
type LevelResult struct {
	Level   string `json:"level"`
	Fetched bool   `json:"fetched"`
	Error   string `json:"error,omitempty"`
	Entries int    `json:"entries"`
	Failed  int    `json:"failed"`
}

// Summary is the outcome of one run. It is logged, rendered and published.
type Summary struct {
	RunID         string        `json:"run_id"`
	Sink          string        `json:"sink"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Levels        []LevelResult `json:"levels"`
	Processed     int           `json:"processed"`
	Failed        int           `json:"failed"`
	PagesFailed   int           `json:"pages_failed"`
	FinalizeError string        `json:"finalize_error,omitempty"`
}

func (s *Summary) add(res LevelResult) {
	s.Levels = append(s.Levels, res)
	s.Processed += res.Entries
	s.Failed += res.Failed
	if !res.Fetched {
		s.PagesFailed++
	}
}
