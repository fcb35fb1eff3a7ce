package platform

// Package platform contains OS integration and external tooling glue:
// filesystem helpers, locating yt-dlp, launching subprocesses with merged
// output, URL recognition, playlist inspection and OS open/reveal.
