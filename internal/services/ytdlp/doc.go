// Package ytdlp shells out to the external feed downloader.
package ytdlp
