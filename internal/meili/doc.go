// Package meili provides an HTTP client for the Meilisearch API.
//
// # Overview
//
// The package turns single HTTP exchanges into typed results. It owns three
// pieces that every endpoint shares:
//
//   - client.go: the request dispatcher (Do) and the Doer transport seam
//   - classify.go and catalog.go: mapping of non-2xx bodies onto ServiceError
//   - types.go: data structures mirroring the API schema, Task first
//
// endpoints.go layers the concrete routes (indexes, documents, search, tasks,
// dumps) on top of Do.
//
// # Client Usage
//
//	client, err := meili.NewClient(meili.Options{
//		Endpoint: "127.0.0.1:7700",
//		APIKey:   os.Getenv("MEILISEARCH_API_KEY"),
//	})
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	task, err := client.CreateIndex(ctx, "movies", "id")
//	if err != nil {
//		log.Printf("create index failed: %v", err)
//	}
//
// Mutations return a Task in the enqueued status. Hand it to the poller
// package to wait for the server to finish it.
//
// # Decoding
//
// Do takes a Decoder chosen by the caller. JSON[T]() covers the common case;
// endpoints that must accept more than one response shape (Indexes,
// ListDocuments) pass their own.
//
//	hits, err := meili.Search[Movie](ctx, client, "movies", meili.SearchRequest{Query: "alien"})
//
// # Request Handling
//
// All requests:
//   - Carry Accept: application/json and User-Agent: sift/0.1
//   - Carry Authorization: Bearer <key> only when an API key is configured
//   - Optionally carry an X-Request-Id generated per request
//   - Honor the caller's context for cancellation
//
// The dispatcher never retries. Connection pooling and timeouts belong to the
// Doer (an *http.Client by default).
//
// # Error Handling
//
// Every failure is one of the typed errors in errors.go:
//
//   - *TransportError: no HTTP response was received
//   - *ServiceError: the server answered non-2xx; Code is set when the body
//     carried a code known to the catalog, and Message then ends with
//     remediation text
//   - *DecodeError: a 2xx body did not match the expected type
//
// The poller adds *TaskFailedError, *TimeoutError and *PreconditionError.
// Each type matches its sentinel with errors.Is:
//
//	if errors.Is(err, meili.ErrService) && meili.IsNotFound(err) {
//		// ...
//	}
//
// # Task Status
//
// TaskStatus has no "unknown" member. A Task decoded without a status keeps
// the zero value, and a status string outside the known set fails decoding.
package meili
