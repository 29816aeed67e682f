package tutor

// BuildSystemPrompt is exported for testing
var BuildSystemPrompt = buildSystemPrompt

// BuildSummaryPrompt is exported for testing
var BuildSummaryPrompt = buildSummaryPrompt
