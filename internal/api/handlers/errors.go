package handlers

import (
	"errors"
	"net/http"

	"battery-arbitrage/internal/api/models"
	"battery-arbitrage/internal/lp"
	"battery-arbitrage/internal/model"
	"battery-arbitrage/internal/telemetry"

	"github.com/gin-gonic/gin"
)

// Error codes returned in ErrorDetail.Code.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInfeasible     = "INFEASIBLE"
	CodeUnbounded      = "UNBOUNDED"
	CodeSolverTimeout  = "SOLVER_TIMEOUT"
	CodeSolverError    = "SOLVER_ERROR"
	CodeModelTooLarge  = "MODEL_TOO_LARGE"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
)

// classify maps an optimisation error to an HTTP status and error detail.
func classify(err error) (int, models.ErrorDetail) {
	var ve *model.ValidationError
	var se *lp.SolverError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, models.ErrorDetail{
			Code:    CodeInvalidInput,
			Message: err.Error(),
			Details: map[string]interface{}{"field": ve.Field},
		}
	case errors.Is(err, lp.ErrInfeasible):
		return http.StatusUnprocessableEntity, models.ErrorDetail{Code: CodeInfeasible, Message: err.Error()}
	case errors.Is(err, lp.ErrUnbounded):
		return http.StatusUnprocessableEntity, models.ErrorDetail{Code: CodeUnbounded, Message: err.Error()}
	case errors.As(err, &se) && se.Timeout():
		return http.StatusGatewayTimeout, models.ErrorDetail{Code: CodeSolverTimeout, Message: err.Error()}
	case errors.As(err, &se) && se.Reason == lp.ReasonTooLarge:
		return http.StatusRequestEntityTooLarge, models.ErrorDetail{Code: CodeModelTooLarge, Message: err.Error()}
	case errors.As(err, &se):
		return http.StatusInternalServerError, models.ErrorDetail{
			Code:    CodeSolverError,
			Message: err.Error(),
			Details: map[string]interface{}{"reason": se.Reason},
		}
	case errors.Is(err, errUnknownPreset):
		return http.StatusBadRequest, models.ErrorDetail{
			Code:    CodeInvalidInput,
			Message: err.Error(),
			Details: map[string]interface{}{"field": "battery_file"},
		}
	default:
		return http.StatusInternalServerError, models.ErrorDetail{Code: CodeInternal, Message: err.Error()}
	}
}

func respondError(c *gin.Context, err error) {
	status, detail := classify(err)
	if detail.Code == CodeInvalidInput {
		if field, ok := detail.Details["field"].(string); ok {
			telemetry.ValidationFailures.WithLabelValues(field).Inc()
		}
	}
	c.JSON(status, models.ErrorResponse{Error: detail})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    CodeInvalidRequest,
			Message: err.Error(),
		},
	})
}

func notFound(c *gin.Context, what, id string) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    CodeNotFound,
			Message: what + " not found",
			Details: map[string]interface{}{"id": id},
		},
	})
}
