package whisper

// DefaultModel is used when configuration leaves the model unset.
const DefaultModel = "medium"

// Config carries the engine invocation settings.
type Config struct {
	// Binary is the whisper.cpp-style executable name or path.
	Binary string
	// ModelDir holds ggml model files named ggml-<model>.bin.
	ModelDir string
	// Model selects which ggml model to load.
	Model string
	// Threads caps engine decoding threads; 0 lets the engine decide.
	Threads int
	// Language is the default recognition language when an item has no hint.
	Language string
	// EntropyThreshold tunes the engine's decoder fallback.
	EntropyThreshold float64
	// EmitSRT also requests SRT captions alongside txt/vtt (bulk mode).
	EmitSRT bool
}
