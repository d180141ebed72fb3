package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
)

func (s *Server) createPipeline(c *fiber.Ctx) error {
	var req createPipelineRequest
	if err := c.BodyParser(&req); err != nil {
		return writeErr(c, s.log, apperr.Validation(400, "malformed request body: %v", err))
	}
	if err := s.valid.Struct(req); err != nil {
		return writeErr(c, s.log, apperr.Validation(400, "invalid request: %v", err))
	}

	id, err := s.orch.Create(c.Context(), req.Name, req.toRawRequest())
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(createPipelineResponse{ID: id})
}

func (s *Server) listPipelines(c *fiber.Ctx) error {
	recs, err := s.orch.List(c.Context())
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(recs)
}

func (s *Server) getPipeline(c *fiber.Ctx) error {
	rec, err := s.orch.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(rec)
}

func (s *Server) updatePipeline(c *fiber.Ctx) error {
	var req createPipelineRequest
	if err := c.BodyParser(&req); err != nil {
		return writeErr(c, s.log, apperr.Validation(400, "malformed request body: %v", err))
	}
	if err := s.orch.Update(c.Context(), c.Params("id"), req.toRawRequest()); err != nil {
		return writeErr(c, s.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deletePipeline(c *fiber.Ctx) error {
	if err := s.orch.Delete(c.Context(), c.Params("id")); err != nil {
		return writeErr(c, s.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) rawConfig(c *fiber.Ctx) error {
	rec, err := s.orch.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(rec.RawRequest["config"])
}

func (s *Server) rawComposer(c *fiber.Ctx) error {
	rec, err := s.orch.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(rec.RawRequest["composer"])
}

func (s *Server) rawJenkinsfile(c *fiber.Ctx) error {
	rec, err := s.orch.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(rec.RawRequest["jenkinsfile"])
}

func (s *Server) jeplConfig(c *fiber.Ctx) error {
	sections, err := s.orch.ConfigSections(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	out := make([]jeplEnvelope, 0, len(sections))
	for _, cfg := range sections {
		out = append(out, jeplEnvelope{FileName: cfg.FileName, Data: cfg.DataYML})
	}
	return c.JSON(out)
}

func (s *Server) jeplComposer(c *fiber.Ctx) error {
	composer, err := s.orch.Composer(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(jeplEnvelope{FileName: composer.FileName, Data: composer.DataYML})
}

func (s *Server) jeplJenkinsfile(c *fiber.Ctx) error {
	data, err := s.orch.Jenkinsfile(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(jeplEnvelope{FileName: "Jenkinsfile", Data: data})
}

func (s *Server) commandsScripts(c *fiber.Ctx) error {
	scripts, err := s.orch.CommandsScripts(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(scripts)
}

func (s *Server) compressedFiles(c *fiber.Ctx) error {
	archive, err := s.orch.Compress(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="sqaaas.zip"`)
	return c.Send(archive)
}

func (s *Server) runPipeline(c *fiber.Ctx) error {
	var q runRequest
	if err := c.QueryParser(&q); err != nil {
		return writeErr(c, s.log, apperr.Validation(400, "malformed query parameters: %v", err))
	}
	reason, err := s.orch.Run(c.Context(), c.Params("id"), q.IssueBadge, q.RepoURL, q.RepoBranch)
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.Status(fiber.StatusNoContent).JSON(runResponse{Reason: reason})
}

func (s *Server) status(c *fiber.Ctx) error {
	info, err := s.orch.Status(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(newStatusResponse(info))
}

func (s *Server) pullRequest(c *fiber.Ctx) error {
	var body pullRequestBody
	if err := c.BodyParser(&body); err != nil {
		return writeErr(c, s.log, apperr.Validation(400, "malformed request body: %v", err))
	}
	if err := s.valid.Struct(body); err != nil {
		return writeErr(c, s.log, apperr.Validation(400, "invalid request: %v", err))
	}

	url, err := s.orch.ProposeChange(c.Context(), c.Params("id"), body.Repo, body.Branch)
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(pullRequestResponse{PullRequestURL: url})
}

func (s *Server) issueBadge(c *fiber.Ctx) error {
	assertion, err := s.orch.IssueBadge(c.Context(), c.Params("id"))
	if err != nil {
		return writeErr(c, s.log, err)
	}
	return c.JSON(newBadgeResponse(assertion))
}

func (s *Server) getBadge(c *fiber.Ctx) error {
	shareHTML := c.Query("share") == "html"
	assertion, html, err := s.orch.GetBadge(c.Context(), c.Params("id"), shareHTML)
	if err != nil {
		return writeErr(c, s.log, err)
	}
	if shareHTML {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(html)
	}
	return c.JSON(newBadgeResponse(assertion))
}
