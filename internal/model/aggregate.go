package model

// AggregateResult holds the IPA averages for a test. A nil average means
// no answer of that type was counted.
type AggregateResult struct {
	AvgImportance    *float64 `json:"avgImportance"`
	AvgPerformance   *float64 `json:"avgPerformance"`
	ImportanceCount  int      `json:"importanceCount"`
	PerformanceCount int      `json:"performanceCount"`
	ResponseCount    int      `json:"responseCount"`
}

// Empty reports whether neither dimension has a value
func (r *AggregateResult) Empty() bool {
	return r.AvgImportance == nil && r.AvgPerformance == nil
}
