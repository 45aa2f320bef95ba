package core

// AssertionTotals are the framework-wide assertion counters of a run.
type AssertionTotals struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// ReportSection is one SECTION node of a Catch2 case.
type ReportSection struct {
	Name      string          `json:"name"`
	Successes int             `json:"successes"`
	Failures  int             `json:"failures"`
	Sections  []ReportSection `json:"sections,omitempty"`
}

// ReportCase is one TEST_CASE of a Catch2 run.
type ReportCase struct {
	Name      string          `json:"name"`
	File      string          `json:"file,omitempty"`
	Line      int             `json:"line,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	Success   bool            `json:"success"`
	Successes int             `json:"successes"`
	Failures  int             `json:"failures"`
	Sections  []ReportSection `json:"sections,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// TestReport is the uniform shape every framework report is parsed into.
type TestReport struct {
	TotalCases  int             `json:"total_cases"`
	PassedCases int             `json:"passed_cases"`
	FailedCases int             `json:"failed_cases"`
	Assertions  AssertionTotals `json:"assertions"`
	Cases       []ReportCase    `json:"cases"`
	// Fallback flags how the report was obtained when the XML could not be
	// parsed: "regex" or "literal". Empty for a clean XML parse.
	Fallback string `json:"fallback,omitempty"`
}

// CoverageSummary is the single rollup reported per execution.
type CoverageSummary struct {
	Percentage       float64 `json:"percentage"`
	LinesCovered     int     `json:"lines_covered"`
	LinesTotal       int     `json:"lines_total"`
	BranchesCovered  int     `json:"branches_covered"`
	BranchesTotal    int     `json:"branches_total"`
	FunctionsCovered int     `json:"functions_covered"`
	FunctionsTotal   int     `json:"functions_total"`
	// Warning explains reduced accuracy, e.g. when only gcov was available.
	Warning string `json:"warning,omitempty"`
}
