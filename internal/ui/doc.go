// Package ui contains the Fyne desktop window. It turns user input into
// workflow requests and renders workflow.State from the coordinator's event
// stream on the UI goroutine.
package ui
