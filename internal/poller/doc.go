// Package poller waits for Meilisearch tasks to finish.
//
// Mutating API calls return a Task that the server has only enqueued. A
// Poller re-fetches that task on a fixed interval until it is terminal:
//
//	Waiting ──(succeeded)──> Succeeded   returns the fetched snapshot
//	   │  └───(failed)─────> Failed      *meili.TaskFailedError
//	   │  └───(no status)──> aborted     *meili.PreconditionError
//	   └──(budget spent)───> GaveUp      *meili.TimeoutError
//
// Every tick sleeps the full interval (5s by default) before fetching, so the
// first check happens one interval after Await is called. The default budget
// is 10 attempts; Unlimited() removes it and Attempts(n) changes it per call.
//
// Only "not finished yet" is retried. A fetch that fails, whether on the
// network or with a non-2xx response, ends the wait with that error.
//
// # Scheduling
//
// Await runs on the caller's goroutine. Start runs it on a new goroutine and
// returns a Pending handle; AwaitAll fans out over an errgroup. Concurrent
// awaits of the same uid are independent and each issues its own fetches.
//
// Cancellation is observed while sleeping. A fetch that has already started
// runs on a context detached from cancellation, so the loop never abandons a
// request halfway.
package poller
