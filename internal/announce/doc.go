// Package announce schedules terminal output into the two live regions read
// by assistive technology.
//
// A Reader owns a polite channel and an assertive channel. Polite text is
// buffered, joined into lines and written at most once per interval. Assertive
// text is written immediately and discards any polite text that has not been
// written yet. Both channels make repeated identical writes observable by
// prefixing a line break, since hosts only announce a region when its value
// changes.
//
// All Reader methods are safe for concurrent use and never fail.
package announce
