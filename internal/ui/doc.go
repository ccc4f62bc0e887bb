// Package ui renders a live view of awaited tasks with Bubble Tea.
//
// The view owns no polling logic. It re-reads a state.Store snapshot on a
// short tick, draws one row per task (spinner, status badge, attempt count
// and the last error), and quits on its own once every tracked task is done.
// Pressing q quits early without stopping the pollers; t cycles the theme.
package ui
