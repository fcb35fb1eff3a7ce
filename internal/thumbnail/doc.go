// Package thumbnail resolves the preview image for a video URL. The image URL
// comes from a yt-dlp metadata probe and is fetched over HTTP; when anything
// fails a generated placeholder is used instead.
package thumbnail
