// Package alarm contains the alarm domain types: Entry with its repeat
// policy and symbolic action, and Moment, the wall-clock minute an entry is
// evaluated against. Clone helpers keep scheduler internals from leaking.
package alarm
