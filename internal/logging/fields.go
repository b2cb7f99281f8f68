package logging

// Standardized attribute keys used across the pipeline so log lines stay
// greppable regardless of which component emitted them.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldRunID     = "run_id"
	FieldItemID    = "item_id"
	FieldStage     = "stage"
	FieldErrorCode = "error_code"
)
