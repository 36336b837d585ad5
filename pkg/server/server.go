// Package server exposes the compiler over HTTP.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"tasm/pkg/compiler"
	"tasm/pkg/config"
	"tasm/pkg/emit"
	"tasm/pkg/interp"
)

// Server is the compile service.
type Server struct {
	app *fiber.App
	cfg *config.Config
}

// New creates a server using cfg for run limits and native targets.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	srv := &Server{cfg: cfg}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Get("/healthz", srv.healthz)
	app.Post("/v1/compile", srv.compile)
	app.Post("/v1/run", srv.run)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

type compileRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename"`
	// Emit is "ir" (default) or "asm".
	Emit      string `json:"emit"`
	AllErrors bool   `json:"allErrors"`
}

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) compile(c *fiber.Ctx) error {
	req, res, err := s.build(c)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	format := emit.FormatIR
	if req.Emit != "" {
		f, err := emit.ParseFormat(req.Emit)
		if err != nil || f == emit.FormatObject {
			return invalidArgument(c, fmt.Sprintf("unsupported emit format %q", req.Emit))
		}
		format = f
	}
	out, err := emit.Emit(c.UserContext(), res.Module, format, s.cfg.Target())
	if err != nil {
		log.Printf("emit %s: %v", format, err)
		return c.Status(500).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    500,
				"message": err.Error(),
				"status":  "INTERNAL",
			},
		})
	}
	return c.JSON(fiber.Map{
		"output":      string(out),
		"emit":        format.String(),
		"diagnostics": diagnostics(res.Diagnostics),
		"symbols":     res.Symbols.String(),
	})
}

func (s *Server) run(c *fiber.Ctx) error {
	_, res, err := s.build(c)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	vm, err := interp.NewMachine(res.Module)
	if err != nil {
		return internal(c, err)
	}
	var out bytes.Buffer
	vm.Output = &out
	vm.MaxSteps = s.cfg.MaxSteps
	vm.MaxDepth = s.cfg.MaxDepth

	code, err := vm.Run("main")
	if errors.Is(err, interp.ErrStepLimit) || errors.Is(err, interp.ErrCallDepth) {
		return c.Status(400).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    400,
				"message": err.Error(),
				"status":  "RESOURCE_EXHAUSTED",
				"output":  out.String(),
			},
		})
	}
	if err != nil {
		return internal(c, err)
	}
	return c.JSON(fiber.Map{
		"output":      out.String(),
		"exitCode":    code,
		"steps":       vm.Steps,
		"diagnostics": diagnostics(res.Diagnostics),
	})
}

// build decodes the request and compiles it. A nil Result with a nil error
// means a response has already been written.
func (s *Server) build(c *fiber.Ctx) (*compileRequest, *compiler.Result, error) {
	var req compileRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, invalidArgument(c, fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == "" {
		return nil, nil, invalidArgument(c, "source is required")
	}

	res, err := compiler.Compile(req.Source, compiler.Options{
		SourceFile:   req.Filename,
		ModuleName:   s.cfg.Module,
		TargetTriple: s.cfg.TargetTriple,
		AllErrors:    req.AllErrors,
	})
	if err != nil {
		log.Printf("compile %q: %v", req.Filename, err)
		return nil, nil, c.Status(400).JSON(fiber.Map{
			"error": fiber.Map{
				"code":        400,
				"message":     err.Error(),
				"status":      "INVALID_ARGUMENT",
				"stage":       stage(err),
				"line":        errorLine(err),
				"diagnostics": diagnostics(res.Diagnostics),
			},
		})
	}
	for _, d := range res.Diagnostics {
		log.Printf("compile %q: %s", req.Filename, d)
	}
	return &req, res, nil
}

func stage(err error) string {
	var lexErr *compiler.LexError
	var parseErr *compiler.ParseError
	switch {
	case errors.As(err, &lexErr):
		return "lex"
	case errors.As(err, &parseErr):
		return "parse"
	}
	return "codegen"
}

func errorLine(err error) int {
	var lexErr *compiler.LexError
	var parseErr *compiler.ParseError
	var genErr *compiler.GenError
	switch {
	case errors.As(err, &lexErr):
		return lexErr.Line
	case errors.As(err, &parseErr):
		return parseErr.Line
	case errors.As(err, &genErr):
		return genErr.Line
	}
	return 0
}

func diagnostics(ds []compiler.Diagnostic) []fiber.Map {
	items := make([]fiber.Map, len(ds))
	for i, d := range ds {
		items[i] = fiber.Map{"line": d.Line, "message": d.Message}
	}
	return items
}

func invalidArgument(c *fiber.Ctx, msg string) error {
	return c.Status(400).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    400,
			"message": msg,
			"status":  "INVALID_ARGUMENT",
		},
	})
}

func internal(c *fiber.Ctx, err error) error {
	log.Printf("internal error: %v", err)
	return c.Status(500).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    500,
			"message": err.Error(),
			"status":  "INTERNAL",
		},
	})
}
