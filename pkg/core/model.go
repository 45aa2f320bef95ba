package core

// DBStores aggregates the datastore interfaces handed around the api layer
// and the runner.
type DBStores struct {
	ProjectStore        ProjectStore
	TestCaseStore       TestCaseStore
	ExecutionStore      ExecutionStore
	ResultStore         ResultStore
	StaticAnalysisStore StaticAnalysisStore
}
