package pipeline

import "github.com/backmassage/dashpack/internal/transcode"

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total            int
	Succeeded        int
	Failed           int
	Copied           int // sources already in the target codec
	Fallbacks        int // jobs that needed the software encoder
	Relocated        int
	TotalInputBytes  int64
	TotalOutputBytes int64
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
// Positive means outputs are smaller; negative means they grew.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}

func (s *RunStats) add(j *Job) {
	s.Total++
	if !j.Outcome.Succeeded() {
		s.Failed++
		return
	}
	s.Succeeded++
	s.TotalInputBytes += j.Outcome.InputBytes
	s.TotalOutputBytes += j.Outcome.OutputBytes
	if j.Outcome.Published != "" {
		s.Relocated++
	}
	tr := j.Outcome.Transcode
	switch {
	case tr.Decision == transcode.AlreadyTarget:
		s.Copied++
	case len(tr.Attempts) > 0 && tr.Attempts[len(tr.Attempts)-1].Tier == transcode.Fallback:
		s.Fallbacks++
	}
}
