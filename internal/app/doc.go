// Package app is the composition root of the sift CLI.
//
// # Overview
//
// Run loads configuration and preferences, builds the shared dependencies and
// dispatches one subcommand. Every command gets the same env:
//
//  1. Load ~/.config/sift/config.toml (plus MEILISEARCH_* fallbacks)
//  2. Load ~/.config/sift/prefs.toml (theme, default index)
//  3. Build the zap logger and a prometheus registry with the sift collectors
//  4. Build the meilisearch client on an instrumented HTTP transport
//  5. Build the task poller, whose observer feeds both the poll counter and
//     the state.Store read by the watch view
//  6. Serve /metrics when metrics_addr is set, then run the command
//
// # Components
//
//   - app.go: Run, Options and env construction
//   - commands.go: the command table, flag parsing and output formatting
//   - poller.go: poller wiring and the wait flows (headless and watched)
//   - metrics_server.go: the optional promhttp listener
//
// # Waiting
//
// The wait command looks every uid up once before polling. Tasks that already
// finished are reported directly; the rest are awaited. Headless waits fan out
// through Poller.AwaitAll, so the first failure stops the others at their next
// interval. Watched waits start one Pending per task and hand the store to the
// Bubble Tea view; quitting the view cancels the remaining polls.
//
// Mutating commands (create-index, delete-index, add-documents) print the
// enqueued task uid, or await it with -wait.
//
// # Errors
//
// Command-line mistakes wrap ErrUsage so the caller can print usage. Other
// errors keep their meili types (ServiceError, TaskFailedError, TimeoutError
// and so on) and are wrapped with the operation that failed.
package app
