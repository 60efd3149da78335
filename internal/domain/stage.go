package domain

// Stage is one discrete, ordered phase of the diagnostic workflow.
type Stage uint8

const (
	// StageEntry is the initial stage and the target of every reset.
	StageEntry Stage = iota

	// StageLanding is the intake-ready landing stage reached by entering the app.
	StageLanding

	// StageIntake collects the patient record and image.
	StageIntake

	// StageAnalyzing waits on the remote analysis call.
	StageAnalyzing

	// StageReview shows the outcome or the failure view.
	StageReview

	// StageReport renders the clinical report.
	StageReport
)

// String returns the string representation of a Stage.
func (s Stage) String() string {
	switch s {
	case StageEntry:
		return "entry"
	case StageLanding:
		return "landing"
	case StageIntake:
		return "intake"
	case StageAnalyzing:
		return "analyzing"
	case StageReview:
		return "review"
	case StageReport:
		return "report"
	default:
		return "unknown"
	}
}

// Next returns the single forward successor of s and whether one exists.
func (s Stage) Next() (Stage, bool) {
	if s >= StageReport {
		return s, false
	}
	return s + 1, true
}
