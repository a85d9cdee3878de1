// Package web serves the task board: a human-facing control surface that
// mutates task status concurrently with the dispatch loop.
package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/control"
	"github.com/ralphloop/ralph/internal/dispatch"
	"github.com/ralphloop/ralph/internal/git"
	"github.com/ralphloop/ralph/internal/progress"
	"github.com/ralphloop/ralph/internal/task"
)

// boardColumns defines the kanban layout, in display order.
var boardColumns = []struct {
	Status string
	Label  string
}{
	{task.StatusPending, "Pending"},
	{task.StatusInProgress, "In Progress"},
	{task.StatusPlanReview, "Awaiting Approval"},
	{task.StatusApproved, "Approved"},
	{task.StatusRejected, "Rejected"},
	{task.StatusPushReview, "Push Review"},
	{task.StatusDecomposed, "Decomposed"},
	{task.StatusDone, "Done"},
	{task.StatusPushed, "Pushed"},
	{task.StatusFailed, "Failed"},
}

// Server holds the handlers for the web control surface.
type Server struct {
	cfg      config.Config
	store    *task.Store
	ctrl     *control.Service
	progress *progress.Logger

	board    *template.Template
	detail   *template.Template
	progTmpl *template.Template
	logTmpl  *template.Template
}

// NewServer builds a server over the shared task store.
func NewServer(cfg config.Config, store *task.Store) *Server {
	funcs := template.FuncMap{"excerpt": excerpt}
	return &Server{
		cfg:      cfg,
		store:    store,
		ctrl:     control.NewService(store, cfg.Workspace),
		progress: progress.NewLogger(cfg.ProgressFile),
		board:    template.Must(template.New("board").Funcs(funcs).Parse(boardHTML)),
		detail:   template.Must(template.New("detail").Funcs(funcs).Parse(detailHTML)),
		progTmpl: template.Must(template.New("progress").Parse(progressHTML)),
		logTmpl:  template.Must(template.New("log").Parse(logHTML)),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleBoard)
	mux.HandleFunc("POST /tasks", s.handleAdd)
	mux.HandleFunc("GET /tasks/{id}", s.handleDetail)
	mux.HandleFunc("POST /tasks/{id}/edit", s.handleEdit)
	mux.HandleFunc("POST /tasks/{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /tasks/{id}/approve", s.taskAction(s.ctrl.Approve, "/tasks/%d"))
	mux.HandleFunc("POST /tasks/{id}/reject", s.handleReject)
	mux.HandleFunc("POST /tasks/{id}/cancel", s.taskAction(s.ctrl.Cancel, "/tasks/%d"))
	mux.HandleFunc("POST /tasks/{id}/retry", s.taskAction(s.ctrl.Retry, "/tasks/%d"))
	mux.HandleFunc("POST /tasks/{id}/approve-push", s.taskAction(s.ctrl.ApprovePush, "/tasks/%d"))
	mux.HandleFunc("POST /tasks/{id}/reject-push", s.taskAction(s.ctrl.RejectPush, "/tasks/%d"))
	mux.HandleFunc("GET /progress", s.handleProgress)
	mux.HandleFunc("GET /log", s.handleLog)
	mux.HandleFunc("GET /status", s.handleStatus)

	return mux
}

// ListenAndServe blocks serving the control surface.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.cfg.WebAddr, s.Handler())
}

type boardColumn struct {
	Label string
	Tasks []task.Task
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	columns := make([]boardColumn, 0, len(boardColumns))
	for _, col := range boardColumns {
		bc := boardColumn{Label: col.Label}
		for _, t := range list.Tasks {
			if t.Status == col.Status {
				bc.Tasks = append(bc.Tasks, t)
			}
		}
		columns = append(columns, bc)
	}

	s.render(w, s.board, map[string]any{"Columns": columns})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue("prompt")
	priority := r.FormValue("priority")
	if _, err := s.ctrl.Add(prompt, priority); err != nil && err != control.ErrEmptyPrompt {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// detailView precomputes the action availability the template shows.
type detailView struct {
	Task       task.Task
	Subtasks   []task.Task
	CanApprove bool
	CanPush    bool
	CanCancel  bool
	CanRetry   bool
	CanEdit    bool
	CanDelete  bool
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	list, err := s.store.Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	t := list.Find(id)
	if t == nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	view := detailView{
		Task:       *t,
		CanApprove: t.Status == task.StatusPlanReview,
		CanPush:    t.Status == task.StatusPushReview,
		CanCancel:  t.Status == task.StatusInProgress || t.Status == task.StatusPlanReview || t.Status == task.StatusApproved,
		CanRetry:   t.Status == task.StatusFailed || t.Status == task.StatusRejected || t.Status == task.StatusDone,
		CanEdit:    t.Status == task.StatusPending || t.Status == task.StatusFailed || t.Status == task.StatusRejected,
		CanDelete:  t.Status != task.StatusInProgress,
	}
	for _, sub := range list.Tasks {
		if sub.Parent != nil && *sub.Parent == id {
			view.Subtasks = append(view.Subtasks, sub)
		}
	}

	s.render(w, s.detail, view)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	priority := r.FormValue("priority")
	if priority == "" {
		priority = task.PriorityMedium
	}
	if err := s.ctrl.Edit(id, r.FormValue("prompt"), priority); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/tasks/%d", id), http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	if err := s.ctrl.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	if err := s.ctrl.Reject(id, r.FormValue("feedback")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/tasks/%d", id), http.StatusSeeOther)
}

// taskAction adapts a one-argument control operation into a handler that
// redirects back to the given location.
func (s *Server) taskAction(op func(int) error, redirectFmt string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := taskID(r)
		if !ok {
			http.Error(w, "invalid task id", http.StatusBadRequest)
			return
		}
		if err := op(id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, fmt.Sprintf(redirectFmt, id), http.StatusSeeOther)
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.progTmpl, map[string]any{"Content": s.progress.Read()})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.logTmpl, map[string]any{"Log": git.Log(s.cfg.Workspace, 30)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := dispatch.ReadStatus(dispatch.StatusFile(s.cfg.TasksFile))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func taskID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
