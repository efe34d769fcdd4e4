package http

import (
	"errors"
	"net/http"
	"strings"

	"runpay/internal/core"
	"runpay/internal/log"
	"runpay/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultActivityLimit = 50

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type indexData struct {
	Snapshot     services.Snapshot
	Summary      core.SummaryReport
	Activity     []core.LogEntry
	Pending      []services.PendingAction
	Automations  []core.Automation
	Integrations []core.Integration
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := indexData{
		Snapshot:     s.console.Snapshot(),
		Summary:      s.console.PreviewSummary(),
		Activity:     s.console.Activity(defaultActivityLimit),
		Pending:      s.console.Pending(),
		Automations:  s.console.Automations(),
		Integrations: s.console.Integrations(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err, "template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// handleSubmitPrompt accepts {"text": "..."} or text=... and runs it
// through the console.
func (s *Server) handleSubmitPrompt(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, log.OpSubmit, err)
		return
	}
	res, err := s.console.Submit(r.Context(), p.Get("text"))
	if err != nil {
		s.writeError(w, r, log.OpSubmit, err)
		return
	}
	status := http.StatusOK
	if res.Entry != nil || res.Pending != nil {
		status = http.StatusCreated
	}
	NewResponse().Status(status).JSON(res).Write(w)
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	entry := s.console.RunSummary(r.Context())
	NewResponse().Status(http.StatusCreated).JSON(entry).Write(w)
}

func (s *Server) handlePreviewSummary(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.console.PreviewSummary()).Write(w)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.console.Pending()).Write(w)
}

func (s *Server) handleConfirmPending(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pendingID(w, r)
	if !ok {
		return
	}
	entry, err := s.console.Confirm(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpConfirm, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(entry).Write(w)
}

func (s *Server) handleCancelPending(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pendingID(w, r)
	if !ok {
		return
	}
	p, err := s.console.Cancel(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpCancel, err)
		return
	}
	NewResponse().JSON(p).Write(w)
}

func (s *Server) pendingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequestError("pending action id must be a UUID").Write(w)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.console.Snapshot()).Write(w)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultActivityLimit)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewResponse().JSON(s.console.Activity(limit)).Write(w)
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.console.Snapshot().Employees).Write(w)
}

func (s *Server) handleSaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpsert, err)
		return
	}
	req.Name, req.Role, req.Email = sanitizeInput(req.Name), sanitizeInput(req.Role), sanitizeInput(req.Email)
	if err := validateStruct(req); err != nil {
		s.writeError(w, r, log.OpUpsert, err)
		return
	}
	e, added, err := s.console.AddEmployee(r.Context(), req.Name, req.Role, req.Email)
	if err != nil {
		s.writeError(w, r, log.OpUpsert, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	NewResponse().Status(status).JSON(e).Write(w)
}

func (s *Server) handleEmployeeAutomations(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(r.PathValue("name"))
	out := s.console.AutomationsFor(name)
	if out == nil {
		out = []core.Automation{}
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.console.Automations()).Write(w)
}

func (s *Server) handleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	var req automationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := validateStruct(req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}

	u := services.AutomationUpdate{
		Name:        req.Name,
		Description: req.Description,
		Recipients:  req.Recipients,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			s.writeError(w, r, log.OpUpdate, core.ErrInvalidAmount)
			return
		}
		u.Amount = &amount
	}
	if req.Status != nil {
		status := core.AutomationStatus(strings.ToLower(*req.Status))
		u.Status = &status
	}

	a, err := s.console.UpdateAutomation(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().JSON(a).Write(w)
}

func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.console.Integrations()).Write(w)
}

func (s *Server) handleConnectIntegration(w http.ResponseWriter, r *http.Request) {
	in, err := s.console.ConnectIntegration(r.Context(), core.IntegrationID(r.PathValue("id")))
	if err != nil {
		s.writeError(w, r, log.OpConnect, err)
		return
	}
	NewResponse().JSON(in).Write(w)
}

type flowStatus struct {
	Active bool               `json:"active"`
	Flow   core.IntegrationID `json:"flow,omitempty"`
	Step   int                `json:"step"`
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	id, step, ok := s.console.ActiveFlow()
	NewResponse().JSON(flowStatus{Active: ok, Flow: id, Step: step}).Write(w)
}

// writeError maps domain and request errors to status codes. Anything
// unrecognised is logged and answered with a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if fields, ok := fieldErrors(err); ok {
		ValidationError(fields).Write(w)
		return
	}

	switch {
	case errors.Is(err, errBodyTooLarge):
		ErrorResponse(http.StatusRequestEntityTooLarge, "too_large", err.Error()).Write(w)
	case errors.Is(err, core.ErrNoPendingAction),
		errors.Is(err, core.ErrNoSuchAutomation),
		errors.Is(err, core.ErrNoSuchIntegration):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, core.ErrDuplicateFirstName):
		ConflictError(err.Error()).Write(w)
	case errors.Is(err, core.ErrEmptyPrompt),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrUnknownFlow):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.As(err, new(badRequest)):
		BadRequestError(err.Error()).Write(w)
	default:
		sl := log.NewStructuredLogger(s.logger)
		sl.LogError(r.Context(), "Request failed", err, op, log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", r.UserAgent()))
		InternalServerError("internal error").Write(w)
	}
}
