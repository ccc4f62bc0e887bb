package meili

// ErrorCode is a symbolic error identifier recognized by the classifier.
type ErrorCode string

const (
	CodeIndexCreationFailed        ErrorCode = "index_creation_failed"
	CodeIndexAlreadyExists         ErrorCode = "index_already_exists"
	CodeIndexNotFound              ErrorCode = "index_not_found"
	CodeInvalidIndexUID            ErrorCode = "invalid_index_uid"
	CodeIndexNotAccessible         ErrorCode = "index_not_accessible"
	CodeInvalidState               ErrorCode = "invalid_state"
	CodePrimaryKeyInferenceFailed  ErrorCode = "primary_key_inference_failed"
	CodeDocumentFieldsLimitReached ErrorCode = "document_fields_limit_reached"
	CodeMissingDocumentID          ErrorCode = "missing_document_id"
	CodeInvalidDocumentID          ErrorCode = "invalid_document_id"
	CodeInvalidFilter              ErrorCode = "invalid_filter"
	CodeInvalidSort                ErrorCode = "invalid_sort"
	CodeBadRequest                 ErrorCode = "bad_request"
	CodeDocumentNotFound           ErrorCode = "document_not_found"
	CodeInternal                   ErrorCode = "internal"
	CodeMissingAuthorizationHeader ErrorCode = "missing_authorization_header"
	CodeInvalidAPIKey              ErrorCode = "invalid_api_key"
	CodeNotFound                   ErrorCode = "not_found"
	CodeTaskNotFound               ErrorCode = "task_not_found"
	CodePayloadTooLarge            ErrorCode = "payload_too_large"
	CodeUnretrievableDocument      ErrorCode = "unretrievable_document"
	CodeInvalidContentType         ErrorCode = "invalid_content_type"
	CodeMissingContentType         ErrorCode = "missing_content_type"
	CodeMalformedPayload           ErrorCode = "malformed_payload"
	CodeMissingPayload             ErrorCode = "missing_payload"
	CodeDumpAlreadyProcessing      ErrorCode = "dump_already_processing"
	CodeDumpNotFound               ErrorCode = "dump_not_found"
)

var catalog = map[ErrorCode]string{
	CodeIndexCreationFailed:        "An error occurred while creating the index. Check the index creation guide.",
	CodeIndexAlreadyExists:         "An index with this uid already exists. Pick another uid or update the existing index.",
	CodeIndexNotFound:              "No index with this uid exists. Create it first or check the uid for typos.",
	CodeInvalidIndexUID:            "The index uid is malformed. Use only alphanumeric characters, hyphens and underscores.",
	CodeIndexNotAccessible:         "The server hit an internal error while accessing the index.",
	CodeInvalidState:               "The database is in an invalid state. Deleting the database and re-indexing should solve the problem.",
	CodePrimaryKeyInferenceFailed:  "No field of the first document contains \"id\". Set the primary key explicitly.",
	CodeDocumentFieldsLimitReached: "A document exceeds the limit of 65,535 fields.",
	CodeMissingDocumentID:          "A document has no value for the primary key. Find and fix the offending documents in the batch.",
	CodeInvalidDocumentID:          "A document identifier must be an integer or a string of a-z A-Z 0-9, hyphens and underscores.",
	CodeInvalidFilter:              "The filter is invalid. Check its syntax and that every filtered attribute is in filterableAttributes.",
	CodeInvalidSort:                "The sort is invalid. Check its syntax and that every sorted attribute is in sortableAttributes.",
	CodeBadRequest:                 "The request is invalid. The error message has the details.",
	CodeDocumentNotFound:           "The document does not exist, or the database was left in an inconsistent state.",
	CodeInternal:                   "The server hit an internal error. Check the message and report an issue if it persists.",
	CodeMissingAuthorizationHeader: "The resource is protected. Send the key as Authorization: Bearer <apiKey> (v0.24 and below used X-MEILI-API-KEY).",
	CodeInvalidAPIKey:              "The API key is not valid for this resource. Check the key or its permissions.",
	CodeNotFound:                   "The requested resource could not be found.",
	CodeTaskNotFound:               "No task with this uid exists. Tasks may have been pruned.",
	CodePayloadTooLarge:            "The payload exceeds the server limit. Raise the maximum payload size or send smaller batches.",
	CodeUnretrievableDocument:      "The document exists but could not be retrieved from the database.",
	CodeInvalidContentType:         "The Content-Type is not supported. Use JSON, CSV or NDJSON.",
	CodeMissingContentType:         "The request has a body but no Content-Type. Use JSON, CSV or NDJSON.",
	CodeMalformedPayload:           "The body does not match its Content-Type or is malformed.",
	CodeMissingPayload:             "A Content-Type was sent without a request body.",
	CodeDumpAlreadyProcessing:      "A dump is already being created. Wait for it to finish before starting another.",
	CodeDumpNotFound:               "The requested dump could not be found.",
}

// LookupCode resolves a server-sent code against the catalog.
func LookupCode(raw string) (ErrorCode, bool) {
	code := ErrorCode(raw)
	if _, ok := catalog[code]; !ok {
		return "", false
	}
	return code, true
}

// Description returns remediation text, empty for codes outside the catalog.
func (c ErrorCode) Description() string {
	return catalog[c]
}
