package ir

// Version constants for content and engine.
const (
	// ContentVersion is the entry definition schema version.
	ContentVersion = "1"

	// EngineVersion is the TypeWriter runtime version.
	EngineVersion = "0.1.0"
)
