package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/amontesdeoca/equiptrack-backend/api/responses"
	"github.com/amontesdeoca/equiptrack-backend/api/validators"
	"github.com/amontesdeoca/equiptrack-backend/internal/feedback"
	pkgerrors "github.com/amontesdeoca/equiptrack-backend/pkg/errors"
	"github.com/amontesdeoca/equiptrack-backend/pkg/logger"
)

type createFeedbackRequest struct {
	StaffID string `json:"staff_id" validate:"required,uuid4"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=2000"`
}

// FeedbackCreate records a feedback entry from a staff member.
func FeedbackCreate(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "feedback service unavailable"))
			return
		}

		var payload createFeedbackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		staffID, err := uuid.Parse(payload.StaffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid staff id"))
			return
		}

		entry, err := svc.Create(r.Context(), feedback.CreateFeedbackInput{
			StaffID: staffID,
			Subject: payload.Subject,
			Message: payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// FeedbackList returns a cursor-paginated feedback page.
func FeedbackList(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := feedback.ListParams{
			Cursor: r.URL.Query().Get("cursor"),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid limit"))
				return
			}
			params.Limit = limit
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
