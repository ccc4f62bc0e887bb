package meili

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultEndpoint {
		t.Fatalf("host = %q, want %q", u.Host, defaultEndpoint)
	}

	u, err = parseBaseURL("https://search.example.com:7700/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.Scheme != "https" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_AttachesBearerOnlyWithAPIKey(t *testing.T) {
	t.Parallel()

	var gotAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Version{PkgVersion: "0.27.2"})
	}))
	t.Cleanup(server.Close)

	withKey, err := NewClient(Options{Endpoint: server.URL, APIKey: "masterKey"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	withoutKey, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	v, err := withKey.Version(context.Background())
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if v.PkgVersion != "0.27.2" {
		t.Fatalf("PkgVersion = %q, want 0.27.2", v.PkgVersion)
	}
	if _, err := withoutKey.Version(context.Background()); err != nil {
		t.Fatalf("Version returned error: %v", err)
	}

	if len(gotAuth) != 2 || gotAuth[0] != "Bearer masterKey" || gotAuth[1] != "" {
		t.Fatalf("Authorization headers = %q, want [Bearer masterKey, \"\"]", gotAuth)
	}
}

func TestClient_SendsBodiesHeadersAndQueries(t *testing.T) {
	t.Parallel()

	type seen struct {
		method, path, query, contentType, body, requestID, custom string
	}
	var got []seen

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, seen{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
			requestID:   r.Header.Get(requestIDHeader),
			custom:      r.Header.Get("X-Custom"),
		})
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"uid":3,"indexUid":"movies","status":"enqueued","type":"documentAddition"}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(Options{Endpoint: server.URL, RequestIDs: true})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	task, err := c.AddOrUpdateDocuments(ctx, "movies", []map[string]any{{"id": 1}}, "id")
	if err != nil {
		t.Fatalf("AddOrUpdateDocuments returned error: %v", err)
	}
	if task.UID != 3 || task.Status != TaskEnqueued {
		t.Fatalf("task = %#v, want uid 3 enqueued", task)
	}

	_, err = Do(ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/indexes/movies/documents",
		Body:   json.RawMessage(`[{"id":2}]`),
		Header: http.Header{"X-Custom": []string{"yes"}},
	}, JSON[Task]())
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(got))
	}
	if got[0].method != http.MethodPut || got[0].path != "/indexes/movies/documents" || got[0].query != "primaryKey=id" {
		t.Fatalf("first request = %+v, want PUT /indexes/movies/documents?primaryKey=id", got[0])
	}
	if got[0].contentType != "application/json" || got[0].body != `[{"id":1}]` {
		t.Fatalf("first request body = %q (%s)", got[0].body, got[0].contentType)
	}
	if got[0].requestID == "" || got[0].requestID == got[1].requestID {
		t.Fatalf("request ids = %q, %q, want distinct non-empty", got[0].requestID, got[1].requestID)
	}
	if got[1].body != `[{"id":2}]` || got[1].custom != "yes" {
		t.Fatalf("second request = %+v, want raw body and header override", got[1])
	}
}

func TestClient_ClassifiesNonSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Index ghosts not found.","code":"index_not_found","type":"invalid_request"}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.DeleteIndex(context.Background(), "ghosts")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("DeleteIndex error = %v, want *ServiceError", err)
	}
	if svcErr.Code != CodeIndexNotFound || svcErr.HTTPStatus != 404 {
		t.Fatalf("ServiceError = %+v, want index_not_found 404", svcErr)
	}
	if svcErr.Method != http.MethodDelete || svcErr.Path != "/indexes/ghosts" {
		t.Fatalf("ServiceError request = %s %s", svcErr.Method, svcErr.Path)
	}
	if !strings.Contains(string(svcErr.Body), "Index ghosts not found.") {
		t.Fatalf("Body = %q, want original body", svcErr.Body)
	}

	idx, err := c.Index(context.Background(), "ghosts")
	if err != nil || idx != nil {
		t.Fatalf("Index = %v, %v, want nil, nil", idx, err)
	}
}

func TestClient_DecodeAndTransportErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/version":
			_, _ = w.Write([]byte("{not-json"))
		case "/tasks/1":
			_, _ = w.Write([]byte(`{"uid":1,"status":"exploded"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.Version(context.Background())
	var decErr *DecodeError
	if !errors.As(err, &decErr) || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("Version error = %v, want decode error", err)
	}
	if string(decErr.Body) != "{not-json" {
		t.Fatalf("DecodeError.Body = %q", decErr.Body)
	}

	_, err = c.Task(context.Background(), 1)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Task error = %v, want ErrDecode for unknown status", err)
	}

	dead, err := NewClient(Options{Endpoint: "127.0.0.1:1", RequestTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = dead.Health(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Health error = %v, want ErrTransport", err)
	}
}

func TestClient_ListsTasksIndexesAndSearches(t *testing.T) {
	t.Parallel()

	var tasksQuery string
	var searchBody SearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tasks":
			tasksQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`{"results":[{"uid":1,"status":"succeeded","indexUid":"movies","type":"indexCreation"}]}`))
		case "/indexes":
			_, _ = w.Write([]byte(`[{"uid":"movies","primaryKey":"id"}]`))
		case "/indexes/movies/documents":
			_, _ = w.Write([]byte(`{"results":[{"id":1,"title":"Alien"}],"offset":0,"limit":20,"total":1}`))
		case "/indexes/movies/search":
			_ = json.NewDecoder(r.Body).Decode(&searchBody)
			_, _ = w.Write([]byte(`{"hits":[{"id":1,"title":"Alien"}],"query":"alien","limit":20,"estimatedTotalHits":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	list, err := c.Tasks(ctx, TasksQuery{IndexUIDs: []string{"movies"}, Statuses: []TaskStatus{TaskSucceeded, TaskFailed}, Limit: 5})
	if err != nil {
		t.Fatalf("Tasks returned error: %v", err)
	}
	if len(list.Results) != 1 || list.Results[0].Status != TaskSucceeded {
		t.Fatalf("Tasks = %#v", list)
	}
	if tasksQuery != "indexUid=movies&limit=5&status=succeeded%2Cfailed" {
		t.Fatalf("tasks query = %q", tasksQuery)
	}

	indexes, err := c.Indexes(ctx)
	if err != nil || len(indexes) != 1 || indexes[0].PrimaryKey != "id" {
		t.Fatalf("Indexes = %#v, %v", indexes, err)
	}

	type movie struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	docs, err := ListDocuments[movie](ctx, c, "movies", DocumentsQuery{Limit: 20})
	if err != nil || len(docs) != 1 || docs[0].Title != "Alien" {
		t.Fatalf("ListDocuments = %#v, %v", docs, err)
	}

	res, err := Search[movie](ctx, c, "movies", SearchRequest{Query: "alien", Limit: 20})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if searchBody.Query != "alien" || len(res.Hits) != 1 || res.Hits[0].ID != 1 {
		t.Fatalf("Search = %#v (sent %#v)", res, searchBody)
	}
}

func TestClient_TaskFromIndex(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/indexes/movies/tasks/12":
			_, _ = w.Write([]byte(`{"uid":12,"indexUid":"movies","status":"processing","type":"documentAdditionOrUpdate"}`))
		case "/indexes/broken/tasks/12":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"boom","code":"internal","type":"internal"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Task not found.","code":"task_not_found","type":"invalid_request"}`))
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(Options{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	task, err := c.TaskFromIndex(ctx, "movies", 12)
	if err != nil {
		t.Fatalf("TaskFromIndex returned error: %v", err)
	}
	if task == nil || task.UID != 12 || task.Status != TaskProcessing || task.IndexUID != "movies" {
		t.Fatalf("TaskFromIndex = %+v, want processing task 12 of movies", task)
	}

	missing, err := c.TaskFromIndex(ctx, "books", 12)
	if err != nil || missing != nil {
		t.Fatalf("TaskFromIndex(books) = %v, %v, want nil, nil", missing, err)
	}

	_, err = c.TaskFromIndex(ctx, "broken", 12)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != CodeInternal {
		t.Fatalf("TaskFromIndex(broken) error = %v, want internal ServiceError", err)
	}
}
