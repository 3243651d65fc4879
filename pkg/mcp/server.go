package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/crumbs/api"
	"github.com/macropower/crumbs/api/v1beta1/rulesets"
	"github.com/macropower/crumbs/pkg/runner"
	"github.com/macropower/crumbs/pkg/version"
)

// ErrMissingPath is returned when a tool call names no file.
var ErrMissingPath = errors.New("path is required")

// Server implements the MCP server for crumbs.
type Server struct {
	runner  *runner.Runner
	server  *mcp.Server
	tracer  trace.Tracer
	address string

	// Relative paths in tool calls are resolved against root.
	root string
}

// NewServer creates a new MCP server instance. When address is empty, the
// server uses stdio.
func NewServer(address string, r *runner.Runner, root string) *Server {
	impl := &mcp.Implementation{
		Name:    name,
		Version: version.GetVersion(),
	}

	s := &Server{
		address: address,
		server:  mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
		runner:  r,
		tracer:  otel.Tracer("mcp"),
		root:    root,
	}

	s.registerTools()

	return s
}

// registerTools registers all available tools with the MCP server.
func (s *Server) registerTools() {
	profiles := s.runner.Config().ProfileNames()

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "highlight",
		Description: "Highlight a source file and list the resulting spans: group, line, start and end column, and text. You MUST specify a path.",
		InputSchema: inputSchema[HighlightParams](profiles),
	}, WithTracing(s.tracer, s.handleHighlight))

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "breadcrumbs",
		Description: "Find the tokens of a source file whose text equals the given text, and show their breadcrumb paths (the labels of the syntax tree nodes enclosing them). You MUST specify a path and text.",
		InputSchema: inputSchema[BreadcrumbsParams](profiles),
	}, WithTracing(s.tracer, s.handleBreadcrumbs))
}

// inputSchema infers the input schema of T and limits its "profile" property
// to the configured profile names. A nil result lets the SDK infer the schema.
func inputSchema[T any](profiles []string) *jsonschema.Schema {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		slog.Error("infer tool input schema", slog.Any("error", err))

		return nil
	}

	if p, ok := schema.Properties["profile"]; ok && len(profiles) > 0 {
		p.Enum = make([]any, 0, len(profiles))
		for _, name := range profiles {
			p.Enum = append(p.Enum, name)
		}
	}

	return schema
}

// resolve returns the absolute path of a tool call's file.
func (s *Server) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrMissingPath
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}

	return filepath.Clean(path), nil
}

// runnerFor returns the runner for a tool call's overrides.
func (s *Server) runnerFor(profileName, rules string) (*runner.Runner, error) {
	if profileName == "" && rules == "" {
		return s.runner, nil
	}

	var opts []runner.RunnerOpt
	if profileName != "" {
		opts = append(opts, runner.WithProfile(profileName))
	}

	if rules != "" {
		if !rulesets.IsBuiltin(rules) && !filepath.IsAbs(rules) {
			rules = filepath.Join(s.root, rules)
		}

		opts = append(opts, runner.WithRuleSet(rules))
	}

	r, err := s.runner.With(opts...)
	if err != nil {
		return nil, fmt.Errorf("configure runner: %w", err)
	}

	return r, nil
}

func readSource(path string) ([]byte, error) {
	content, err := api.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return content, nil
}

// Server returns the underlying MCP server.
func (s *Server) Server() *mcp.Server {
	return s.server
}

// Serve starts the MCP server and blocks until ctx is done or the transport
// fails.
func (s *Server) Serve(ctx context.Context) error {
	slog.InfoContext(ctx, "starting MCP server", slog.String("address", s.address))

	if s.address == "" {
		err := s.serveStdio(ctx)
		if err != nil {
			return fmt.Errorf("serve stdio: %w", err)
		}

		return nil
	}

	err := s.serveHTTP(ctx)
	if err != nil {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

func (s *Server) serveHTTP(ctx context.Context) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	server := &http.Server{
		Addr:    s.address,
		Handler: handler,

		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			slog.Error("shut down MCP server", slog.Any("error", err))
		}
	}()

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

func (s *Server) serveStdio(ctx context.Context) error {
	var t mcp.Transport = &mcp.StdioTransport{}
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		t = &mcp.LoggingTransport{Transport: t, Writer: os.Stderr}
	}

	err := s.server.Run(ctx, t)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}
