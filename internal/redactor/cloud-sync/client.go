// Клиент удаленного хранилища документов по HTTP с JSON.
//
// Хранилище отдает и принимает документы по адресам {base}/documents/ и {base}/documents/{id}/.
// Запросы повторяются при сетевых ошибках и ответах 5xx, пакетная отправка идет параллельно
// с ограничением числа одновременных запросов.
//
// Основные возможности:
//   - Список, запись и удаление документов.
//   - Параллельная отправка списка документов.
//   - Авторизация по токену.
//   - Метрики запросов в Prometheus.
package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aisa-it/redactor/internal/redactor/dao"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const pushWorkers = 4

type Options struct {
	Token        string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

type Client struct {
	base  *url.URL
	token string
	http  *retryablehttp.Client

	requests *prometheus.CounterVec
}

var _ dao.Remote = (*Client)(nil)

func NewClient(base *url.URL, opts Options) *Client {
	cl := retryablehttp.NewClient()
	cl.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		cl.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		cl.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		cl.HTTPClient.Timeout = opts.Timeout
	}
	cl.Logger = slog.Default()

	return &Client{
		base:  base,
		token: opts.Token,
		http:  cl,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redactor",
			Name:      "remote_sync_requests_total",
			Help:      "Requests to the remote document storage by operation and result",
		}, []string{"op", "result"}),
	}
}

// Collectors метрики клиента для регистрации в Prometheus.
func (c *Client) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.requests}
}

func (c *Client) List(ctx context.Context) ([]dao.Document, error) {
	var docs []dao.Document
	err := c.do(ctx, "list", http.MethodGet, "documents/", nil, &docs)
	return docs, err
}

func (c *Client) Put(ctx context.Context, doc dao.Document) error {
	return c.do(ctx, "put", http.MethodPut, "documents/"+doc.ID.String()+"/", doc, nil)
}

// PutAll отправляет документы параллельно. Первая ошибка отменяет оставшиеся запросы.
func (c *Client) PutAll(ctx context.Context, docs []dao.Document) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pushWorkers)
	for _, doc := range docs {
		g.Go(func() error {
			return c.Put(ctx, doc)
		})
	}
	return g.Wait()
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, "delete", http.MethodDelete, "documents/"+id.String()+"/", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		c.requests.WithLabelValues(op, result).Inc()
	}()

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// StatusError ответ удаленного хранилища с кодом не 2xx.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}
