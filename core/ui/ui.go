// Package ui holds the contracts between the response pipeline and whatever
// draws it, and a single-threaded scheduler that serialises all drawing.
package ui

import "image"

// Scheduler runs callbacks on the goroutine that owns the display. Post must
// be safe to call from any goroutine and must run callbacks in the order
// they were posted.
type Scheduler interface {
	Post(func())
}

// Surface is the visible state of the front end. Its methods are only ever
// called from callbacks run by the Scheduler.
type Surface interface {
	// SetImage replaces the displayed avatar frame.
	SetImage(image.Image)
	// AppendText appends to the scrollable transcript view.
	AppendText(string)
}
