package types

// Stage identifies a pipeline state. A run moves through the stages strictly
// in order.
type Stage string

// Pipeline stage constants
const (
	StageIngested   Stage = "ingested"
	StageExtracted  Stage = "extracted"
	StageSorted     Stage = "sorted"
	StageAnalyzed   Stage = "analyzed"
	StageAggregated Stage = "aggregated"
	StageCleaned    Stage = "cleaned"
	StageResolved   Stage = "resolved"
	StageSummarized Stage = "summarized"
	StageReported   Stage = "reported"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageIngested,
	StageExtracted,
	StageSorted,
	StageAnalyzed,
	StageAggregated,
	StageCleaned,
	StageResolved,
	StageSummarized,
	StageReported,
}

// IsValidStage reports whether s is a known stage.
func IsValidStage(s Stage) bool {
	return s.index() >= 0
}

// IsValidStageTransition reports whether a run may move from current to next.
// The only legal transitions are (empty) -> ingested and each stage to its
// direct successor. StageReported is terminal.
func IsValidStageTransition(current, next Stage) bool {
	if current == "" {
		return next == StageIngested
	}
	ci, ni := current.index(), next.index()
	if ci < 0 || ni < 0 {
		return false
	}
	return ni == ci+1
}

func (s Stage) index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}
