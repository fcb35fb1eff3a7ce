// Package cli wires the application together and exposes it as cobra
// commands. The default command opens the window; the other commands run
// the same workflow headless and print its log.
package cli
