package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/prometheus/client_golang/prometheus"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

const DefaultPDFTimeout = 15 * time.Second

// ParseFormat принимает md, markdown, html и pdf без учета регистра.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", apierrors.ErrUnsupportedExportFormat.WithFormattedMessage(raw)
}

func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/pdf"
}

func (f Format) Ext() string {
	return "." + string(f)
}

type renderFunc func(title, content string, out io.Writer) error

type Exporter struct {
	pdfTimeout time.Duration
	renderPDF  renderFunc

	exports  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewExporter(pdfTimeout time.Duration) *Exporter {
	if pdfTimeout <= 0 {
		pdfTimeout = DefaultPDFTimeout
	}
	return &Exporter{
		pdfTimeout: pdfTimeout,
		renderPDF:  RenderPDF,
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "redactor",
			Name:      "exports_total",
			Help:      "Total count of document exports by format and result",
		}, []string{"format", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "redactor",
			Name:      "export_duration_seconds",
			Help:      "Document export duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
	}
}

// Collectors метрики экспорта для регистрации в Prometheus.
func (e *Exporter) Collectors() []prometheus.Collector {
	return []prometheus.Collector{e.exports, e.duration}
}

func (e *Exporter) Markdown(title, content string, out io.Writer) error {
	return e.observe(FormatMarkdown, func() error { return RenderMarkdown(title, content, out) })
}

func (e *Exporter) HTML(title, content string, out io.Writer) error {
	return e.observe(FormatHTML, func() error { return RenderHTML(title, content, out) })
}

// PDF строит PDF в отдельной горутине и ждет не дольше таймаута. По таймауту возвращается
// ErrExportTimeout, а построение продолжается в фоне, его результат отбрасывается.
// В out ничего не пишется, пока PDF не построен целиком.
func (e *Exporter) PDF(ctx context.Context, title, content string, out io.Writer) error {
	return e.observe(FormatPDF, func() error {
		ctx, cancel := context.WithTimeout(ctx, e.pdfTimeout)
		defer cancel()

		type result struct {
			data []byte
			err  error
		}
		done := make(chan result, 1)
		go func() {
			var buf bytes.Buffer
			err := e.renderPDF(title, content, &buf)
			done <- result{buf.Bytes(), err}
		}()

		select {
		case res := <-done:
			if res.err != nil {
				slog.Error("Render pdf", "title", title, "err", res.err)
				return apierrors.ErrExportFailed
			}
			_, err := out.Write(res.data)
			return err
		case <-ctx.Done():
			slog.Warn("PDF export timed out", "title", title, "timeout", e.pdfTimeout)
			return apierrors.ErrExportTimeout.WithFormattedMessage(e.pdfTimeout.String())
		}
	})
}

// Export выбирает экспорт по формату.
func (e *Exporter) Export(ctx context.Context, format Format, title, content string, out io.Writer) error {
	switch format {
	case FormatMarkdown:
		return e.Markdown(title, content, out)
	case FormatHTML:
		return e.HTML(title, content, out)
	case FormatPDF:
		return e.PDF(ctx, title, content, out)
	}
	return apierrors.ErrUnsupportedExportFormat.WithFormattedMessage(string(format))
}

func (e *Exporter) observe(format Format, fn func() error) error {
	start := time.Now()
	err := fn()
	e.duration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apierrors.ErrExportTimeout):
		result = "timeout"
	default:
		result = "error"
	}
	e.exports.WithLabelValues(string(format), result).Inc()
	return err
}
