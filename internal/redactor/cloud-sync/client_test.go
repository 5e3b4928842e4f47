package cloudsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aisa-it/redactor/internal/redactor/dao"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend удаленное хранилище в памяти.
type fakeBackend struct {
	mu       sync.Mutex
	docs     map[string]dao.Document
	failures atomic.Int32
	auth     string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.auth = r.Header.Get("Authorization")
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		http.Error(w, "temporary", http.StatusBadGateway)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	id := strings.TrimSuffix(path, "/")
	switch {
	case r.Method == http.MethodGet && id == "":
		docs := make([]dao.Document, 0, len(f.docs))
		for _, d := range f.docs {
			docs = append(docs, d)
		}
		json.NewEncoder(w).Encode(docs)
	case r.Method == http.MethodPut:
		var d dao.Document
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if d.ID.String() != id {
			http.Error(w, "id mismatch", http.StatusBadRequest)
			return
		}
		f.docs[id] = d
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete:
		if _, ok := f.docs[id]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(f.docs, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "bad request", http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeBackend) {
	backend := &fakeBackend{docs: make(map[string]dao.Document)}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL + "/api")
	require.NoError(t, err)
	return NewClient(base, Options{
		Token:        "t0ken",
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}), backend
}

func TestPutListDelete(t *testing.T) {
	ctx := context.Background()
	client, backend := newTestClient(t)

	d := dao.NewDocument("remote doc")
	d.Content = "<p>hello</p>"
	require.NoError(t, client.Put(ctx, d))
	assert.Equal(t, "Bearer t0ken", backend.auth)

	docs, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, d.ID, docs[0].ID)
	assert.Equal(t, "<p>hello</p>", docs[0].Content)
	assert.True(t, docs[0].ModifiedAt.Equal(d.ModifiedAt))

	require.NoError(t, client.Delete(ctx, d.ID))
	// повторное удаление не ошибка
	require.NoError(t, client.Delete(ctx, d.ID))

	docs, err = client.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 1.0, testutil.ToFloat64(client.requests.WithLabelValues("put", "ok")))
}

func TestPutAll(t *testing.T) {
	client, backend := newTestClient(t)

	var docs []dao.Document
	for range 10 {
		docs = append(docs, dao.NewDocument("doc"))
	}
	require.NoError(t, client.PutAll(context.Background(), docs))
	assert.Len(t, backend.docs, 10)
}

func TestRetryOnServerError(t *testing.T) {
	client, backend := newTestClient(t)
	backend.failures.Store(2)

	require.NoError(t, client.Put(context.Background(), dao.NewDocument("retry")))
	assert.Len(t, backend.docs, 1)
}

func TestGivesUp(t *testing.T) {
	client, backend := newTestClient(t)
	backend.failures.Store(10)

	_, err := client.List(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(client.requests.WithLabelValues("list", "error")))
}

func TestClientErrorIsNotRetried(t *testing.T) {
	client, _ := newTestClient(t)

	d := dao.NewDocument("bad")
	req := d
	req.ID = dao.GenUUID()
	// тело с другим ID, сервер отвечает 400
	err := client.do(context.Background(), "put", http.MethodPut, "documents/"+d.ID.String()+"/", req, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
}

func TestStoreOverRemote(t *testing.T) {
	client, backend := newTestClient(t)
	backend.failures.Store(100)

	store := dao.NewDocumentStore(nil, client)
	res, err := store.SyncRemote(context.Background(), []dao.Document{dao.NewDocument("local")})
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, dao.StatusOffline, store.State().Status())
}
