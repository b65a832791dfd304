package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"solana-mint-campaign/internal/allowlist"
	"solana-mint-campaign/internal/campaign"
	"solana-mint-campaign/internal/mint"
	"solana-mint-campaign/internal/storage"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func sendError(c *gin.Context, status int, err error) {
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// fail maps the operation error taxonomy onto HTTP statuses.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, campaign.ErrValidation):
		sendError(c, http.StatusBadRequest, err)
	case errors.Is(err, campaign.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		sendError(c, http.StatusNotFound, err)
	case errors.Is(err, campaign.ErrUnauthorized):
		sendError(c, http.StatusForbidden, err)
	case errors.Is(err, mint.ErrNotEligible):
		sendError(c, http.StatusForbidden, err)
	case errors.Is(err, campaign.ErrConflict), errors.Is(err, mint.ErrSoldOut),
		errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, allowlist.ErrGroupNotRestricted):
		sendError(c, http.StatusConflict, err)
	case errors.Is(err, campaign.ErrTooEarly):
		sendError(c, http.StatusTooEarly, err)
	case errors.Is(err, campaign.ErrPreconditionFailed):
		sendError(c, http.StatusPreconditionFailed, err)
	default:
		var subErr *campaign.SubmissionError
		if errors.As(err, &subErr) {
			sendError(c, http.StatusBadGateway, err)
			return
		}
		sendError(c, http.StatusInternalServerError, err)
	}
}
