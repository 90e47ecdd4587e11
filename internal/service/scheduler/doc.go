// Package scheduler keeps the alarm list and evaluates it once per
// wall-clock minute.
//
// A robfig/cron job fires every minute but only submits the evaluation to
// the control loop. The evaluation itself and every alarm dispatch run on
// the loop. Minutes skipped by a clock jump are dropped with a warning and
// are never fired retroactively.
package scheduler
