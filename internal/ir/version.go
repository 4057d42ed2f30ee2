package ir

// Version constants for the automation schema and engine.
const (
	// SchemaVersion is the automation rule schema version.
	SchemaVersion = "1"

	// EngineVersion is the cardflow engine version.
	EngineVersion = "0.1.0"
)
