package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"teamreports/internal/auth"
	"teamreports/internal/export"
	"teamreports/internal/log"
	"teamreports/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type submitResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type reportResponse struct {
	ID          string       `json:"id"`
	Category    string       `json:"category"`
	Value       string       `json:"value"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
	Owner       ownerSummary `json:"owner"`
}

type ownerSummary struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if sanitizeInput(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusUnprocessableEntity, CodeValidationFailed, "email and password are required")
		return
	}

	token, user, err := s.deps.Auth.Login(r.Context(), sanitizeInput(req.Email), req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, r, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
		return
	}
	if err != nil {
		s.events.LogError(r.Context(), "Login failed", err, log.OpLogin, nil)
		writeError(w, r, http.StatusBadGateway, CodeRecordStoreUnavailable, "the account store could not be read")
		return
	}

	render.JSON(w, r, loginResponse{
		Token: token,
		User:  userResponse{ID: user.ID, Email: user.Email, Role: user.Role.String()},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	render.JSON(w, r, userResponse{ID: user.ID, Email: user.Email, Role: user.Role.String()})
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var in services.SubmitInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	in.Category = sanitizeInput(in.Category)
	in.Description = sanitizeInput(in.Description)

	saved, err := s.deps.Reports.Submit(r.Context(), user, in)
	if err != nil {
		status, code, msg := submitFailure(err)
		if status >= http.StatusInternalServerError {
			s.events.LogError(r.Context(), "Report submission failed", err, log.OpCreate, log.NewFields().WithUser(user.ID, user.Role.String()))
		}
		writeError(w, r, status, code, msg)
		return
	}

	s.events.LogReportSubmitted(r.Context(), user.ID, saved.ID, saved.Category, saved.Value.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, submitResponse{Message: "Report submitted", ID: saved.ID})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Reports.List(r.Context())
	if err != nil {
		s.events.LogError(r.Context(), "Listing reports failed", err, log.OpList, nil)
		writeError(w, r, http.StatusBadGateway, CodeRecordStoreUnavailable, "the record store could not be read")
		return
	}

	out := make([]reportResponse, 0, len(views))
	for _, v := range views {
		out = append(out, reportResponse{
			ID:          v.ID,
			Category:    v.Category,
			Value:       v.Value.String(),
			Description: v.Description,
			CreatedAt:   v.CreatedAt,
			Owner:       ownerSummary{ID: v.OwnerID, Email: v.OwnerEmail},
		})
	}
	render.JSON(w, r, out)
}

// handleMasterReport renders the whole document before writing anything, so
// a failure never leaves a partial file on the wire.
func (s *Server) handleMasterReport(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		status, code, _ := exportFailure(err)
		writeError(w, r, status, code, "format must be one of pdf, xlsx, jpg")
		return
	}

	doc, err := s.deps.Exports.Export(r.Context(), format)
	if err != nil {
		status, code, msg := exportFailure(err)
		if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
			s.events.LogError(r.Context(), "Master report export failed", err, log.OpExport,
				log.NewFields().WithUser(user.ID, user.Role.String()))
		}
		writeError(w, r, status, code, msg)
		return
	}

	s.events.LogExport(r.Context(), user.ID, doc.Format.String(), doc.Categories, len(doc.Body))

	h := w.Header()
	h.Set("Content-Type", doc.ContentType)
	h.Set("Content-Disposition", "attachment; filename="+doc.Filename)
	h.Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
