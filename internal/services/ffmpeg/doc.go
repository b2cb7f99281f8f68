// Package ffmpeg shells out to the media conversion toolchain.
package ffmpeg
