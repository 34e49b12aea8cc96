package logging

const (
	// FieldComponent names the package or subsystem emitting the record.
	FieldComponent = "component"
	// FieldEventType is a stable machine-readable label for the event.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRunID identifies one invocation of the companion process.
	FieldRunID = "run_id"
	// FieldEndpoint is the resolved daemon endpoint address.
	FieldEndpoint = "endpoint"
	// FieldVerb is the daemon request type.
	FieldVerb = "verb"
)
