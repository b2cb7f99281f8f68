// Package whisper shells out to the external speech-recognition engine.
package whisper
