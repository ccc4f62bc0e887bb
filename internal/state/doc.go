// Package state shares poll progress between the poller goroutines and the
// watch view.
//
// Pollers push every tick through Store.Update (installed as a
// poller.WithObserver callback); the UI reads Store.Snapshot on its own
// refresh schedule:
//
//	Poller goroutines:              UI:
//	┌──────────────────┐           ┌──────────────────┐
//	│ fetch task       │           │                  │
//	│      ↓           │           │                  │
//	│ store.Update(obs)│──────────→│ store.Snapshot() │
//	│      ↓           │  (mutex)  │      ↓           │
//	│ sleep interval   │           │ render           │
//	└──────────────────┘           └──────────────────┘
//
// Update takes the write lock; Snapshot takes the read lock and returns deep
// copies of each task, so callers may keep or modify a Snapshot freely.
//
// A fetch error arrives as an observation with no task. The store keeps the
// last task it saw for that uid and records the error beside it, so the view
// can still show the last known status.
//
// Tasks appear in the order they were first tracked or observed. Call Track
// before starting the pollers to list every uid immediately, since the first
// observation only arrives after one full poll interval.
//
// The zero Store is ready to use.
package state
