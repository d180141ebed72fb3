// Package httpapi implements the REST surface of spec.md §6 on top of the
// Orchestrator: route wiring, request validation and the mapping from the
// apperr taxonomy to HTTP status codes and response bodies. It never holds
// business logic of its own, the way the teacher's pkg/api/server.go stays
// a thin Fiber wrapper around pkg/gzhclient.
package httpapi

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/alvarolopez/sqaaas-api-server/internal/orchestrator"
)

// Server is the Fiber-backed HTTP front end for an Orchestrator.
type Server struct {
	app    *fiber.App
	orch   *orchestrator.Orchestrator
	log    *zap.Logger
	valid  *validator.Validate
}

// Config controls read/write timeouts; the listen address is passed
// separately to Listen, the way fiber.App.Listen takes its own address.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New builds a Server wired to orch. log may be nil, in which case a
// no-op logger is used.
func New(orch *orchestrator.Orchestrator, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "SQAaaS API server",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: errorHandler(log),
	})

	s := &Server{app: app, orch: orch, log: log, valid: validator.New()}

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New())

	s.routes()
	return s
}

// App exposes the underlying Fiber app, mainly so tests can drive it
// in-process via app.Test without binding a socket.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts the HTTP server and blocks until it stops or errors.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	v1 := s.app.Group("/v1")

	v1.Post("/pipeline", s.createPipeline)
	v1.Get("/pipeline", s.listPipelines)

	p := v1.Group("/pipeline/:id", s.requireValidID)
	p.Get("/", s.getPipeline)
	p.Put("/", s.updatePipeline)
	p.Delete("/", s.deletePipeline)

	p.Get("/config", s.rawConfig)
	p.Get("/composer", s.rawComposer)
	p.Get("/jenkinsfile", s.rawJenkinsfile)
	p.Get("/config_jepl", s.jeplConfig)
	p.Get("/composer_jepl", s.jeplComposer)
	p.Get("/jenkinsfile_jepl", s.jeplJenkinsfile)
	p.Get("/commands_scripts", s.commandsScripts)
	p.Get("/compressed_files", s.compressedFiles)

	p.Post("/run", s.runPipeline)
	p.Get("/status", s.status)
	p.Post("/pull_request", s.pullRequest)
	p.Post("/badge", s.issueBadge)
	p.Get("/badge", s.getBadge)
}
