package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/prepdeck/internal/domain"
	"github.com/conorfennell/prepdeck/internal/export"
	"github.com/conorfennell/prepdeck/internal/storage"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// changedEvent tells the page to reload the question table.
const changedEvent = "questions-changed"

// Store is the question store the UI drives.
type Store interface {
	Insert(ctx context.Context, q domain.Question) (int64, error)
	Get(ctx context.Context, id int64) (domain.Question, error)
	List(ctx context.Context, f storage.Filter) ([]domain.Question, error)
	Count(ctx context.Context, f storage.Filter) (int, error)
	DistinctValues(ctx context.Context, field domain.Field) ([]string, error)
	Update(ctx context.Context, id int64, q domain.Question) error
	Delete(ctx context.Context, id int64) error
	Sample(ctx context.Context, f storage.Filter) (domain.Question, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        Store
	router    *http.ServeMux
	templates *template.Template
	now       func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(db Store) (*Server, error) {
	tpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		db:        db,
		router:    http.NewServeMux(),
		templates: tpl,
		now:       time.Now,
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create sub-filesystem for static assets: %w", err)
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.HandleFunc("GET /{$}", s.handleIndex())

	// HTMX-based routes
	s.router.HandleFunc("GET /filters", s.handleFilters())
	s.router.HandleFunc("GET /questions", s.handleListQuestions())
	s.router.HandleFunc("POST /questions", s.handleCreateQuestion())
	s.router.HandleFunc("GET /questions/{id}/edit", s.handleEditQuestion())
	s.router.HandleFunc("POST /questions/{id}", s.handleUpdateQuestion())
	s.router.HandleFunc("DELETE /questions/{id}", s.handleDeleteQuestion())

	s.router.HandleFunc("GET /export.csv", s.handleExport())

	s.router.HandleFunc("GET /quiz", s.handleQuiz())
	s.router.HandleFunc("GET /quiz/{id}/answer", s.handleQuizAnswer())
	return nil
}

type tableData struct {
	Questions []domain.Question
	Total     int
	Filter    storage.Filter
	ExportURL template.URL
}

type filterControl struct {
	Name     string
	Label    string
	Options  []string
	Selected []string
}

type pageData struct {
	Controls     []filterControl
	Table        tableData
	Today        string
	Difficulties []domain.Difficulty
}

type flash struct {
	Kind    string
	Message string
}

// handleIndex renders the whole page: add form, filters, table and quiz.
func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		f := parseFilter(r.URL.Query())

		controls, err := s.loadControls(ctx, f)
		if err != nil {
			s.renderError(w, err)
			return
		}

		table, err := s.loadTable(ctx, f)
		if err != nil {
			s.renderError(w, err)
			return
		}

		s.render(w, http.StatusOK, "index", pageData{
			Controls:     controls,
			Table:        table,
			Today:        s.now().Format(storage.DateLayout),
			Difficulties: domain.Difficulties,
		})
	}
}

// handleFilters renders the topic, role and company selects with the
// values currently stored. The page refetches it after every write.
func (s *Server) handleFilters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		controls, err := s.loadControls(r.Context(), parseFilter(r.URL.Query()))
		if err != nil {
			s.renderError(w, err)
			return
		}
		s.render(w, http.StatusOK, "filters", controls)
	}
}

// handleListQuestions renders the question table for the active filters.
func (s *Server) handleListQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := s.loadTable(r.Context(), parseFilter(r.URL.Query()))
		if err != nil {
			s.renderError(w, err)
			return
		}
		s.render(w, http.StatusOK, "table", table)
	}
}

// handleCreateQuestion adds a question from the add form.
func (s *Server) handleCreateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := questionFromForm(r)
		if err != nil {
			s.renderError(w, err)
			return
		}

		id, err := s.db.Insert(r.Context(), q)
		if err != nil {
			s.renderError(w, err)
			return
		}
		slog.Info("Question added", "id", id)

		w.Header().Set("HX-Trigger", changedEvent)
		s.render(w, http.StatusCreated, "flash", flash{Kind: "success", Message: "Saved!"})
	}
}

// handleEditQuestion renders the edit form pre-filled from the record.
func (s *Server) handleEditQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.renderError(w, err)
			return
		}
		q, err := s.db.Get(r.Context(), id)
		if err != nil {
			s.renderError(w, err)
			return
		}
		s.render(w, http.StatusOK, "edit_form", editData{Question: q, Difficulties: domain.Difficulties})
	}
}

type editData struct {
	Question     domain.Question
	Difficulties []domain.Difficulty
}

// handleUpdateQuestion replaces every editable field of a question.
func (s *Server) handleUpdateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.renderError(w, err)
			return
		}
		q, err := questionFromForm(r)
		if err != nil {
			s.renderError(w, err)
			return
		}

		if err := s.db.Update(r.Context(), id, q); err != nil {
			s.renderError(w, err)
			return
		}
		slog.Info("Question updated", "id", id)

		updated, err := s.db.Get(r.Context(), id)
		if err != nil {
			s.renderError(w, err)
			return
		}

		w.Header().Set("HX-Trigger", changedEvent)
		s.render(w, http.StatusOK, "flash", flash{Kind: "success", Message: "Updated!"})
		if err := s.templates.ExecuteTemplate(w, "edit_form", editData{Question: updated, Difficulties: domain.Difficulties}); err != nil {
			slog.Error("Error rendering template", "template", "edit_form", "error", err)
		}
	}
}

// handleDeleteQuestion removes a question and clears the edit panel.
func (s *Server) handleDeleteQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.renderError(w, err)
			return
		}
		if err := s.db.Delete(r.Context(), id); err != nil {
			s.renderError(w, err)
			return
		}
		slog.Info("Question deleted", "id", id)

		w.Header().Set("HX-Trigger", changedEvent)
		s.render(w, http.StatusOK, "flash", flash{Kind: "warning", Message: "Deleted."})
	}
}

// handleExport streams the filtered questions as a CSV download.
func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := s.db.List(r.Context(), parseFilter(r.URL.Query()))
		if err != nil {
			s.renderError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="questions.csv"`)
		if err := export.WriteCSV(w, questions); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("Error writing CSV export", "error", err)
		}
	}
}

// handleQuiz shows one random question from the filtered set.
func (s *Server) handleQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := s.db.Sample(r.Context(), parseFilter(r.URL.Query()))
		if errors.Is(err, domain.ErrEmptyCollection) {
			s.render(w, http.StatusOK, "quiz_empty", nil)
			return
		}
		if err != nil {
			s.renderError(w, err)
			return
		}
		s.render(w, http.StatusOK, "quiz_question", q)
	}
}

// handleQuizAnswer reveals the answer of a quiz question.
func (s *Server) handleQuizAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.renderError(w, err)
			return
		}
		q, err := s.db.Get(r.Context(), id)
		if err != nil {
			s.renderError(w, err)
			return
		}
		s.render(w, http.StatusOK, "quiz_answer", q)
	}
}

func (s *Server) loadControls(ctx context.Context, f storage.Filter) ([]filterControl, error) {
	controls := []filterControl{
		{Name: "topic", Label: "Topic", Selected: f.Topics},
		{Name: "role", Label: "Role", Selected: f.Roles},
		{Name: "company", Label: "Company", Selected: f.Companies},
	}
	for i := range controls {
		values, err := s.db.DistinctValues(ctx, domain.Field(controls[i].Name))
		if err != nil {
			return nil, err
		}
		controls[i].Options = values
	}
	return controls, nil
}

func (s *Server) loadTable(ctx context.Context, f storage.Filter) (tableData, error) {
	questions, err := s.db.List(ctx, f)
	if err != nil {
		return tableData{}, err
	}
	total, err := s.db.Count(ctx, storage.Filter{})
	if err != nil {
		return tableData{}, err
	}
	return tableData{
		Questions: questions,
		Total:     total,
		Filter:    f,
		ExportURL: exportURL(f),
	}, nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("Error rendering template", "template", name, "error", err)
	}
}

// renderError maps store errors to a status and an inline message.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	var status int
	var msg string
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, msg = http.StatusUnprocessableEntity, userMessage(err, domain.ErrValidation)
	case errors.Is(err, errBadID):
		status, msg = http.StatusBadRequest, "Invalid question ID."
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "That question no longer exists."
	default:
		slog.Error("Request failed", "error", err)
		status, msg = http.StatusInternalServerError, "Something went wrong; the change was not saved."
	}
	s.render(w, status, "flash", flash{Kind: "error", Message: msg})
}

// userMessage strips the sentinel prefix so "validation failed: question is
// required" reads as "Question is required."
func userMessage(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return err.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

var errBadID = errors.New("invalid question id")

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errBadID, r.PathValue("id"))
	}
	return id, nil
}

func questionFromForm(r *http.Request) (domain.Question, error) {
	if err := r.ParseForm(); err != nil {
		return domain.Question{}, fmt.Errorf("%w: malformed form: %v", domain.ErrValidation, err)
	}
	return domain.Question{
		Company:    r.PostForm.Get("company"),
		Role:       r.PostForm.Get("role"),
		Topic:      r.PostForm.Get("topic"),
		Difficulty: domain.Difficulty(r.PostForm.Get("difficulty")),
		Question:   r.PostForm.Get("question"),
		Answer:     r.PostForm.Get("answer"),
		DateAdded:  r.PostForm.Get("date_added"),
		Notes:      r.PostForm.Get("notes"),
	}, nil
}

// parseFilter reads repeated topic, role and company parameters plus the
// free-text q parameter. Blank values are ignored; q is otherwise kept as
// typed.
func parseFilter(v url.Values) storage.Filter {
	return storage.Filter{
		Topics:    nonBlank(v["topic"]),
		Roles:     nonBlank(v["role"]),
		Companies: nonBlank(v["company"]),
		Text:      v.Get("q"),
	}
}

func exportURL(f storage.Filter) template.URL {
	u := "/export.csv"
	if q := filterQuery(f).Encode(); q != "" {
		u += "?" + q
	}
	return template.URL(u)
}

func filterQuery(f storage.Filter) url.Values {
	v := url.Values{}
	for _, t := range f.Topics {
		v.Add("topic", t)
	}
	for _, r := range f.Roles {
		v.Add("role", r)
	}
	for _, c := range f.Companies {
		v.Add("company", c)
	}
	if strings.TrimSpace(f.Text) != "" {
		v.Set("q", f.Text)
	}
	return v
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
