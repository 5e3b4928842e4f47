// Сессии редактирования: открытие документа в редакторе, команды форматирования, ввод, таблицы,
// диалоги вставки, подсветка синтаксиса и сохранение.
//
// Сессии живут в памяти. Запросы к одной сессии выполняются по очереди под ее мьютексом.
package redactor

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/aisa-it/redactor/internal/redactor/dao"
	"github.com/aisa-it/redactor/internal/redactor/editor"
	"github.com/aisa-it/redactor/internal/redactor/editor/commands"
	"github.com/aisa-it/redactor/internal/redactor/editor/selection"
	"github.com/aisa-it/redactor/internal/redactor/editor/table"
	"github.com/aisa-it/redactor/internal/redactor/notifications"
	errStack "github.com/aisa-it/redactor/internal/redactor/stack-error"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

type sessionEntry struct {
	mu           sync.Mutex
	session      *editor.Session
	docID        uuid.UUID
	savedContent string
	lastUsed     time.Time
}

func (e *sessionEntry) dirty() bool {
	return e.session.Content() != e.savedContent
}

type sessionRegistry struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{entries: make(map[string]*sessionEntry)}
}

func (r *sessionRegistry) add(e *sessionEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.session.ID] = e
}

func (r *sessionRegistry) get(id string) (*sessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *sessionRegistry) all() []*sessionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*sessionEntry, 0, len(r.entries))
	for _, e := range r.entries {
		res = append(res, e)
	}
	return res
}

// dropDocument закрывает сессии удаленного документа без сохранения.
func (r *sessionRegistry) dropDocument(docID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.docID == docID {
			delete(r.entries, id)
		}
	}
}

type SessionResponse struct {
	ID           string                  `json:"id"`
	DocumentID   uuid.UUID               `json:"document_id"`
	Content      string                  `json:"content"`
	Selection    selection.Range         `json:"selection"`
	Revision     int                     `json:"revision"`
	Characters   int                     `json:"characters"`
	Lines        int                     `json:"lines"`
	Highlighting bool                    `json:"highlighting"`
	Dirty        bool                    `json:"dirty"`
	Dialog       *commands.DialogRequest `json:"dialog,omitempty"`
	Shortcut     *editor.Shortcut        `json:"shortcut,omitempty"`
	Document     *dao.Document           `json:"document,omitempty"`
}

type openSessionRequest struct {
	DocumentID   uuid.UUID `json:"document_id"`
	Highlighting *bool     `json:"highlighting"`
}

type commandRequest struct {
	Command string `json:"command" validate:"required"`
	Value   string `json:"value"`
}

type inputRequest struct {
	Type  string `json:"type" validate:"required,oneof=text backspace enter paste select shortcut"`
	Text  string `json:"text"`
	Mime  string `json:"mime"`
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type tableRequest struct {
	Operation string `json:"operation" validate:"required"`
}

type dialogRequest struct {
	Kind      commands.DialogKind `json:"kind" validate:"required,oneof=table image"`
	Cancel    bool                `json:"cancel"`
	Rows      int                 `json:"rows" validate:"omitempty,min=1,max=20"`
	Cols      int                 `json:"cols" validate:"omitempty,min=1,max=10"`
	HeaderRow bool                `json:"header_row"`
	HeaderCol bool                `json:"header_col"`
	Image     commands.ImageSpec  `json:"image" validate:"-"`
}

type highlightRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Services) AddSessionServices(g *echo.Group) {
	g.POST("sessions/", s.openSession)

	sessionGroup := g.Group("sessions/:sid/")
	sessionGroup.GET("", s.withSession(s.getSession))
	sessionGroup.DELETE("", s.closeSession)
	sessionGroup.POST("commands/", s.withSession(s.execCommand))
	sessionGroup.POST("input/", s.withSession(s.handleInput))
	sessionGroup.POST("table/", s.withSession(s.tableOperation))
	sessionGroup.POST("dialog/", s.withSession(s.confirmDialog))
	sessionGroup.PUT("highlight/", s.withSession(s.setHighlighting))
	sessionGroup.POST("save/", s.withSession(s.saveSessionHandler))
	sessionGroup.GET("ws/", func(c echo.Context) error {
		if _, ok := s.sessions.get(c.Param("sid")); !ok {
			return EErrorDefined(c, apierrors.ErrSessionNotFound)
		}
		s.hub.Handle(c.Param("sid"), c.Response(), c.Request())
		return nil
	})
}

type sessionHandler func(c echo.Context, e *sessionEntry) error

// withSession находит сессию и выполняет обработчик под ее мьютексом.
func (s *Services) withSession(h sessionHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		e, ok := s.sessions.get(c.Param("sid"))
		if !ok {
			return EErrorDefined(c, apierrors.ErrSessionNotFound)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		e.lastUsed = time.Now()
		return h(c, e)
	}
}

func sessionResponse(e *sessionEntry) SessionResponse {
	return SessionResponse{
		ID:           e.session.ID,
		DocumentID:   e.docID,
		Content:      e.session.Content(),
		Selection:    e.session.SelectionRange(),
		Revision:     e.session.Revision(),
		Characters:   e.session.CharacterCount(),
		Lines:        e.session.LineCount(),
		Highlighting: e.session.Highlighting(),
		Dirty:        e.dirty(),
	}
}

func (s *Services) openSession(c echo.Context) error {
	var req openSessionRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if req.DocumentID == uuid.Nil {
		return EErrorDefined(c, apierrors.ErrDocumentIDRequired)
	}

	doc, err := s.docs.Get(c.Request().Context(), req.DocumentID)
	if err != nil {
		return EError(c, err)
	}

	highlight := s.cfg.HighlightByDefault
	if req.Highlighting != nil {
		highlight = *req.Highlighting
	}

	id := dao.GenUUID().String()
	session := editor.New(id, doc.Content,
		editor.WithDocument(doc.ID.String()),
		editor.WithHighlighting(highlight),
		editor.WithLogger(slog.Default().With("session", id)),
	)
	e := &sessionEntry{
		session:      session,
		docID:        doc.ID,
		savedContent: session.Content(),
		lastUsed:     time.Now(),
	}
	s.sessions.add(e)

	resp := sessionResponse(e)
	resp.Document = doc
	return c.JSON(http.StatusCreated, resp)
}

func (s *Services) getSession(c echo.Context, e *sessionEntry) error {
	resp := sessionResponse(e)
	if kind, ok := e.session.PendingDialog(); ok {
		resp.Dialog = &commands.DialogRequest{Kind: kind}
	}
	return c.JSON(http.StatusOK, resp)
}

// closeSession сохраняет несохраненные изменения и закрывает сессию.
func (s *Services) closeSession(c echo.Context) error {
	e, ok := s.sessions.get(c.Param("sid"))
	if !ok {
		return c.NoContent(http.StatusOK)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dirty() {
		if _, err := s.saveSession(c.Request().Context(), e); err != nil {
			return EError(c, err)
		}
	}
	s.sessions.remove(e.session.ID)
	return c.NoContent(http.StatusOK)
}

func (s *Services) execCommand(c echo.Context, e *sessionEntry) error {
	var req commandRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	cmd, err := commands.Parse(req.Command, req.Value)
	if err != nil {
		return EError(c, err)
	}
	res, err := e.session.Exec(cmd)
	if err != nil {
		return EError(c, err)
	}

	resp := sessionResponse(e)
	resp.Dialog = res.Dialog
	return c.JSON(http.StatusOK, resp)
}

func (s *Services) handleInput(c echo.Context, e *sessionEntry) error {
	var req inputRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	var shortcut *editor.Shortcut
	switch req.Type {
	case "text":
		e.session.InsertText(req.Text)
	case "backspace":
		e.session.Backspace()
	case "enter":
		e.session.Enter()
	case "paste":
		mime := req.Mime
		if mime == "" {
			mime = editor.MimeText
		}
		e.session.Paste(mime, req.Text)
	case "select":
		e.session.Select(req.Start, req.End)
	case "shortcut":
		sc, err := e.session.HandleShortcut(req.Key, req.Ctrl, req.Meta)
		if err != nil {
			return EError(c, err)
		}
		if sc.Save {
			if _, err := s.saveSession(c.Request().Context(), e); err != nil {
				return EError(c, err)
			}
		}
		shortcut = &sc
	}

	resp := sessionResponse(e)
	resp.Shortcut = shortcut
	return c.JSON(http.StatusOK, resp)
}

func (s *Services) tableOperation(c echo.Context, e *sessionEntry) error {
	var req tableRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	op, err := table.ParseOperation(req.Operation)
	if err != nil {
		return EError(c, err)
	}
	if err := e.session.Table(op); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResponse(e))
}

// confirmDialog подтверждает или отменяет открытый диалог вставки таблицы или картинки.
func (s *Services) confirmDialog(c echo.Context, e *sessionEntry) error {
	var req dialogRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	kind, ok := e.session.PendingDialog()
	if !ok || kind != req.Kind {
		return EErrorDefined(c, apierrors.ErrNoPendingDialog)
	}

	if req.Cancel {
		e.session.CancelDialog()
		return c.JSON(http.StatusOK, sessionResponse(e))
	}

	switch req.Kind {
	case commands.TableDialog:
		rows, cols := req.Rows, req.Cols
		if rows == 0 {
			rows = 3
		}
		if cols == 0 {
			cols = 3
		}
		e.session.InsertTable(rows, cols, req.HeaderRow, req.HeaderCol)
	case commands.ImageDialog:
		if err := e.session.InsertImage(req.Image); err != nil {
			return EError(c, err)
		}
	}
	return c.JSON(http.StatusOK, sessionResponse(e))
}

func (s *Services) setHighlighting(c echo.Context, e *sessionEntry) error {
	var req highlightRequest
	if err := c.Bind(&req); err != nil {
		return EErrorMsgStatus(c, err, http.StatusBadRequest)
	}
	e.session.SetHighlighting(req.Enabled)
	return c.JSON(http.StatusOK, sessionResponse(e))
}

func (s *Services) saveSessionHandler(c echo.Context, e *sessionEntry) error {
	doc, err := s.saveSession(c.Request().Context(), e)
	if err != nil {
		return EError(c, err)
	}
	resp := sessionResponse(e)
	resp.Document = doc
	return c.JSON(http.StatusOK, resp)
}

// saveSession пишет содержимое сессии в документ. Вызывается под мьютексом сессии.
func (s *Services) saveSession(ctx context.Context, e *sessionEntry) (*dao.Document, error) {
	doc, err := s.docs.Get(ctx, e.docID)
	if err != nil {
		return nil, err
	}
	doc.Content = e.session.Content()
	doc.Touch()
	if err := s.saveDocument(ctx, *doc); err != nil {
		return nil, errStack.TrackErrorStack(err).AddContext("session", e.session.ID)
	}
	e.savedContent = doc.Content
	return doc, nil
}

// autosaveAll сохраняет измененные непустые сессии и сообщает результат подписчикам сессии.
func (s *Services) autosaveAll() {
	ctx := context.Background()
	for _, e := range s.sessions.all() {
		e.mu.Lock()
		if !e.dirty() || strings.TrimSpace(e.session.Content()) == "" {
			e.mu.Unlock()
			continue
		}
		doc, err := s.saveSession(ctx, e)
		id := e.session.ID
		e.mu.Unlock()

		if err != nil {
			errStack.LogError(nil, errStack.TrackErrorStack(err).AddContext("job", autosaveJob))
			s.hub.Send(id, notifications.TypeAutosave, map[string]any{"saved": false})
			continue
		}
		slog.Debug("Session autosaved", "session", id, "doc", doc.ID)
		s.hub.Send(id, notifications.TypeAutosave, map[string]any{
			"saved":       true,
			"modified_at": doc.ModifiedAt,
		})
	}
}

// closeIdleSessions сохраняет и закрывает сессии без запросов дольше sessionIdleTimeout.
func (s *Services) closeIdleSessions() {
	ctx := context.Background()
	for _, e := range s.sessions.all() {
		e.mu.Lock()
		if time.Since(e.lastUsed) < sessionIdleTimeout {
			e.mu.Unlock()
			continue
		}
		if e.dirty() {
			if _, err := s.saveSession(ctx, e); err != nil {
				errStack.LogError(nil, err)
				e.mu.Unlock()
				continue
			}
		}
		s.sessions.remove(e.session.ID)
		e.mu.Unlock()
	}
}
