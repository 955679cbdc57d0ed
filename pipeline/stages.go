package pipeline

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/specimen/features/extractors"
	"github.com/RyanBlaney/specimen/preprocess"
)

// Stage names one step of the pipeline
type Stage string

const (
	StageClean     = Stage(preprocess.StageClean)
	StageCrop      = Stage(preprocess.StageCrop)
	StageResize    = Stage(preprocess.StageResize)
	StageGrayscale = Stage(preprocess.StageGrayscale)
	StageEnhance   = Stage(preprocess.StageEnhance)

	StageSpatial   = Stage(extractors.KindSpatial)
	StageFrequency = Stage(extractors.KindFrequency)
	StageTexture   = Stage(extractors.KindTexture)

	StageAggregate   Stage = "aggregate"
	StageStats       Stage = "stats"
	StageCorrelation Stage = "corr"
	StagePCA         Stage = "pca"
	StageClassify    Stage = "classify"
)

// AllStages lists every stage in execution order
var AllStages = []Stage{
	StageClean, StageCrop, StageResize, StageGrayscale, StageEnhance,
	StageSpatial, StageFrequency, StageTexture,
	StageAggregate, StageStats, StageCorrelation, StagePCA, StageClassify,
}

var stageAliases = map[string]Stage{
	"fft":            StageFrequency,
	"lbp":            StageTexture,
	"merge":          StageAggregate,
	"correlation":    StageCorrelation,
	"classification": StageClassify,
	"models":         StageClassify,
}

// ParseStage resolves a stage name or alias
func ParseStage(name string) (Stage, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if s, ok := stageAliases[n]; ok {
		return s, nil
	}
	for _, s := range AllStages {
		if Stage(n) == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", name)
}

// ParseStages resolves a list of names. "all" or an empty list selects
// every stage.
func ParseStages(names []string) ([]Stage, error) {
	if len(names) == 0 {
		return AllStages, nil
	}

	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			return AllStages, nil
		}
		s, err := ParseStage(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

// stageSet is the set of enabled stages
type stageSet map[Stage]bool

func newStageSet(stages []Stage) stageSet {
	set := make(stageSet, len(stages))
	for _, s := range stages {
		set[s] = true
	}
	return set
}

func (s stageSet) preprocessing() []preprocess.Stage {
	var out []preprocess.Stage
	for _, stage := range preprocess.AllStages {
		if s[Stage(stage)] {
			out = append(out, stage)
		}
	}
	return out
}

func (s stageSet) extraction() []extractors.Kind {
	var out []extractors.Kind
	for _, kind := range extractors.AllKinds {
		if s[Stage(kind)] {
			out = append(out, kind)
		}
	}
	return out
}

func (s stageSet) analysis() bool {
	return s[StageStats] || s[StageCorrelation] || s[StagePCA] || s[StageClassify]
}

// aggregation runs when requested and whenever an analysis stage needs
// the merged table
func (s stageSet) aggregation() bool {
	return s[StageAggregate] || s.analysis()
}

// ordered returns the enabled stages in execution order
func (s stageSet) ordered() []Stage {
	var out []Stage
	for _, stage := range AllStages {
		if s[stage] || (stage == StageAggregate && s.aggregation()) {
			out = append(out, stage)
		}
	}
	return out
}
