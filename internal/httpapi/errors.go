package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
)

// errorBody is the JSON shape written for every non-2xx response.
// UpstreamStatus and UpstreamReason are populated only for apperr.KindUpstream, per the
// {upstream_status, upstream_reason} body shape from spec.md §7.
type errorBody struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamReason string `json:"upstream_reason,omitempty"`
}

// writeErr translates err into the matching HTTP response, using the
// apperr taxonomy's own Status when present and 500 otherwise.
func writeErr(c *fiber.Ctx, log *zap.Logger, err error) error {
	appErr, ok := apperr.As(err)
	if !ok {
		log.Error("unclassified error reached the HTTP boundary", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: "internal error"})
	}

	body := errorBody{Error: appErr.Message}
	if appErr.Kind == apperr.KindUpstream {
		body.UpstreamStatus = appErr.UpstreamStatus
		body.UpstreamReason = appErr.UpstreamReason
	}
	if appErr.Status >= 500 {
		log.Error("request failed", zap.Error(err))
	}
	return c.Status(appErr.Status).JSON(body)
}

// errorHandler is installed as the Fiber app's global ErrorHandler, for
// failures that never reach a handler's own writeErr call (routing
// failures, panics recovered by middleware.Recover, body-parse errors).
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(errorBody{Error: fe.Message})
		}
		return writeErr(c, log, err)
	}
}
