package config

// RunOverrides are per-run knobs carried on a pipeline request. They apply
// to a derived copy of the configuration; the global configuration is never
// mutated, so concurrent runs with different overrides do not interfere.
type RunOverrides struct {
	// QualityJudge disables quality filtering entirely when set to false:
	// every generated dialogue is accepted.
	QualityJudge *bool `json:"quality_judge,omitempty"`
	// FewShotExamples overrides how many hub examples seed each experience.
	FewShotExamples *int `json:"few_shot_examples,omitempty"`
	// Temperature overrides the sampling temperature for this run only.
	Temperature *float64 `json:"temperature,omitempty"`
	// QualityImproveOnFail overrides whether failed dialogues get a repair pass.
	QualityImproveOnFail *bool `json:"quality_improve_on_fail,omitempty"`
}

// Apply returns a copy of cfg with the overrides folded in.
func (o *RunOverrides) Apply(cfg *Config) *Config {
	derived := *cfg
	if o == nil {
		return &derived
	}
	if o.FewShotExamples != nil {
		derived.Generation.FewShotExamples = *o.FewShotExamples
	}
	if o.Temperature != nil {
		derived.Generation.Temperature = *o.Temperature
	}
	if o.QualityImproveOnFail != nil {
		derived.Judge.ImproveOnFail = *o.QualityImproveOnFail
	}
	return &derived
}

// JudgeEnabled reports whether quality filtering applies for this run.
func (o *RunOverrides) JudgeEnabled() bool {
	if o == nil || o.QualityJudge == nil {
		return true
	}
	return *o.QualityJudge
}
