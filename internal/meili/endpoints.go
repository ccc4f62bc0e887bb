package meili

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// TaskFetcher is the subset of Client the task poller depends on.
type TaskFetcher interface {
	Task(ctx context.Context, uid int64) (Task, error)
}

// Ensure Client implements TaskFetcher at compile time.
var _ TaskFetcher = (*Client)(nil)

// Version retrieves server version metadata.
func (c *Client) Version(ctx context.Context) (Version, error) {
	return Do(ctx, c, Request{Method: http.MethodGet, Path: "/version"}, JSON[Version]())
}

// Health reports whether the server is available.
func (c *Client) Health(ctx context.Context) (Health, error) {
	return Do(ctx, c, Request{Method: http.MethodGet, Path: "/health"}, JSON[Health]())
}

// Tasks lists tasks matching query.
func (c *Client) Tasks(ctx context.Context, query TasksQuery) (TaskList, error) {
	values := url.Values{}
	if len(query.IndexUIDs) > 0 {
		values.Set("indexUid", strings.Join(query.IndexUIDs, ","))
	}
	if len(query.Statuses) > 0 {
		statuses := make([]string, 0, len(query.Statuses))
		for _, s := range query.Statuses {
			statuses = append(statuses, string(s))
		}
		values.Set("status", strings.Join(statuses, ","))
	}
	if len(query.Types) > 0 {
		values.Set("type", strings.Join(query.Types, ","))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.From > 0 {
		values.Set("from", strconv.FormatInt(query.From, 10))
	}
	return Do(ctx, c, Request{Method: http.MethodGet, Path: "/tasks", Query: values}, JSON[TaskList]())
}

// Task fetches one task by uid.
func (c *Client) Task(ctx context.Context, uid int64) (Task, error) {
	return Do(ctx, c, Request{Method: http.MethodGet, Path: "/tasks/" + strconv.FormatInt(uid, 10)}, JSON[Task]())
}

// IndexTasks lists the tasks created for one index.
func (c *Client) IndexTasks(ctx context.Context, index string) (TaskList, error) {
	return Do(ctx, c, Request{Method: http.MethodGet, Path: indexPath(index, "tasks")}, JSON[TaskList]())
}

// TaskFromIndex fetches one task scoped to index. A task missing from that
// index yields nil without error.
func (c *Client) TaskFromIndex(ctx context.Context, index string, uid int64) (*Task, error) {
	path := indexPath(index, "tasks", strconv.FormatInt(uid, 10))
	task, err := Do(ctx, c, Request{Method: http.MethodGet, Path: path}, JSON[Task]())
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// Indexes lists every index.
func (c *Client) Indexes(ctx context.Context) ([]Index, error) {
	// Servers before v0.28 answer with a bare array, later ones wrap it.
	decode := func(body []byte) ([]Index, error) {
		if trimmed := strings.TrimSpace(string(body)); strings.HasPrefix(trimmed, "[") {
			return JSON[[]Index]()(body)
		}
		page, err := JSON[struct {
			Results []Index `json:"results"`
		}]()(body)
		return page.Results, err
	}
	return Do(ctx, c, Request{Method: http.MethodGet, Path: "/indexes"}, decode)
}

// Index fetches one index. A missing index yields nil without error.
func (c *Client) Index(ctx context.Context, uid string) (*Index, error) {
	idx, err := Do(ctx, c, Request{Method: http.MethodGet, Path: indexPath(uid)}, JSON[Index]())
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &idx, nil
}

// CreateIndex enqueues creation of an index.
func (c *Client) CreateIndex(ctx context.Context, uid, primaryKey string) (Task, error) {
	body := map[string]string{"uid": uid}
	if primaryKey != "" {
		body["primaryKey"] = primaryKey
	}
	return Do(ctx, c, Request{Method: http.MethodPost, Path: "/indexes", Body: body}, JSON[Task]())
}

// UpdateIndex enqueues a primary key change.
func (c *Client) UpdateIndex(ctx context.Context, uid, primaryKey string) (Task, error) {
	body := map[string]string{"primaryKey": primaryKey}
	return Do(ctx, c, Request{Method: http.MethodPut, Path: indexPath(uid), Body: body}, JSON[Task]())
}

// DeleteIndex enqueues deletion of an index.
func (c *Client) DeleteIndex(ctx context.Context, uid string) (Task, error) {
	return Do(ctx, c, Request{Method: http.MethodDelete, Path: indexPath(uid)}, JSON[Task]())
}

// AddOrReplaceDocuments enqueues documents that replace existing ones
// with the same primary key.
func (c *Client) AddOrReplaceDocuments(ctx context.Context, index string, docs any, primaryKey string) (Task, error) {
	return Do(ctx, c, documentsRequest(http.MethodPost, index, docs, primaryKey), JSON[Task]())
}

// AddOrUpdateDocuments enqueues documents that are merged field by field
// into existing ones.
func (c *Client) AddOrUpdateDocuments(ctx context.Context, index string, docs any, primaryKey string) (Task, error) {
	return Do(ctx, c, documentsRequest(http.MethodPut, index, docs, primaryKey), JSON[Task]())
}

// DeleteAllDocuments enqueues removal of every document in index.
func (c *Client) DeleteAllDocuments(ctx context.Context, index string) (Task, error) {
	return Do(ctx, c, Request{Method: http.MethodDelete, Path: indexPath(index, "documents")}, JSON[Task]())
}

// DeleteDocument enqueues removal of one document.
func (c *Client) DeleteDocument(ctx context.Context, index, id string) (Task, error) {
	return Do(ctx, c, Request{Method: http.MethodDelete, Path: indexPath(index, "documents", id)}, JSON[Task]())
}

// DeleteDocuments enqueues removal of a batch of documents.
func (c *Client) DeleteDocuments(ctx context.Context, index string, ids []string) (Task, error) {
	req := Request{Method: http.MethodPost, Path: indexPath(index, "documents", "delete-batch"), Body: ids}
	return Do(ctx, c, req, JSON[Task]())
}

// CreateDump starts a dump.
func (c *Client) CreateDump(ctx context.Context) (Dump, error) {
	return Do(ctx, c, Request{Method: http.MethodPost, Path: "/dumps"}, JSON[Dump]())
}

// DumpStatus reports the progress of a dump.
func (c *Client) DumpStatus(ctx context.Context, uid string) (Dump, error) {
	path := "/dumps/" + uid + "/status"
	return Do(ctx, c, Request{Method: http.MethodGet, Path: path}, JSON[Dump]())
}

// GetDocument fetches one document decoded as T.
func GetDocument[T any](ctx context.Context, c *Client, index, id string) (T, error) {
	return Do(ctx, c, Request{Method: http.MethodGet, Path: indexPath(index, "documents", id)}, JSON[T]())
}

// ListDocuments fetches a page of documents decoded as T.
func ListDocuments[T any](ctx context.Context, c *Client, index string, query DocumentsQuery) ([]T, error) {
	values := url.Values{}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		values.Set("offset", strconv.Itoa(query.Offset))
	}
	if len(query.Fields) > 0 {
		values.Set("attributesToRetrieve", strings.Join(query.Fields, ","))
	}
	req := Request{Method: http.MethodGet, Path: indexPath(index, "documents"), Query: values}
	decode := func(body []byte) ([]T, error) {
		if trimmed := strings.TrimSpace(string(body)); strings.HasPrefix(trimmed, "[") {
			return JSON[[]T]()(body)
		}
		page, err := JSON[struct {
			Results []T `json:"results"`
		}]()(body)
		return page.Results, err
	}
	return Do(ctx, c, req, decode)
}

// Search runs a query against index and decodes hits as T.
func Search[T any](ctx context.Context, c *Client, index string, search SearchRequest) (SearchResponse[T], error) {
	req := Request{Method: http.MethodPost, Path: indexPath(index, "search"), Body: search}
	return Do(ctx, c, req, JSON[SearchResponse[T]]())
}

func documentsRequest(method, index string, docs any, primaryKey string) Request {
	req := Request{Method: method, Path: indexPath(index, "documents"), Body: docs}
	if primaryKey != "" {
		req.Query = url.Values{"primaryKey": []string{primaryKey}}
	}
	return req
}

func indexPath(uid string, rest ...string) string {
	// Request.Path is unescaped; url.URL escapes it when the request is built.
	return "/indexes/" + strings.Join(append([]string{uid}, rest...), "/")
}
