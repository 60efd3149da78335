// Package workflow drives one radiograph through the diagnostic stages.
//
// The Orchestrator owns the stage, the submitted PatientRecord, and the
// AnalysisOutcome (or failure) for a single run. Submitting a complete
// record moves the run to Analyzing and starts the analysis on its own
// goroutine; the result moves it to Review. Reset returns to Entry from
// anywhere, cancels the in-flight call, and discards any late result.
//
// AnalyzeRadiographWorkflow is the durable rendition of the same analysis
// step for deployments that run it on Temporal. Workflow code here must stay
// deterministic; all I/O happens in the activity.
package workflow
