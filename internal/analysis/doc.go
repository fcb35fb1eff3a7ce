// Package analysis estimates the tempo and musical key of a downloaded
// audio file. A FeatureExtractor produces tempo candidates and a chroma
// matrix; the Analyzer reduces them to an integer BPM and one of 24 key
// labels.
package analysis
