package triage

// Stage is a step of a triage round. A round only moves forward and stops at
// the first stage that fails.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageClassify Stage = "classify"
	StageReport   Stage = "report"
	StageMark     Stage = "mark"
	StageDone     Stage = "done"
)

func (s Stage) String() string {
	return string(s)
}
