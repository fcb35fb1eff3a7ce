// Package download runs yt-dlp as a subprocess and turns its output into an
// ordered stream of model events. Controller owns one run; Service allows a
// single run at a time and tracks its status.
package download
