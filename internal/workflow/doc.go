// Package workflow connects the download, thumbnail and analysis components.
// Every worker reports through one event channel; State folds those events
// into what the presentation layer shows.
package workflow
