// Package protocol implements the coordination protocols built on top of the
// atomic store.
//
// Acquire resolves an identifier to a cell, optionally creating it or waiting
// for another worker to create it. Await polls a cell until its reading
// matches one of a list of targets. CompareAndRetry applies the first
// successful compare-and-set transition from a list and, depending on its
// failure policy, gives up or retries after a delay.
//
// Absence, timeouts, interruptions and failed transitions are expected
// outcomes and are reported as Route values. Errors are reserved for
// configuration and type errors, which callers should treat as fatal for the
// unit of work at hand.
package protocol
