package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// requireValidID enforces spec.md §6's "{id} must be a valid version-4
// opaque identifier; otherwise 400" rule before any handler touches the
// orchestrator.
func (s *Server) requireValidID(c *fiber.Ctx) error {
	id := c.Params("id")
	if u, err := uuid.Parse(id); err != nil || u.Version() != 4 {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "pipeline id must be a valid version-4 UUID"})
	}
	return c.Next()
}
