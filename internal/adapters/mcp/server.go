// Package mcpadapter exposes the question answering pipeline to MCP clients over stdio.
package mcpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

const (
	serverName = "athlete-rag"
	Version    = "0.1.0"
)

var ErrMissingQueryService = errors.New("mcp: query service is required")

// Ports are the pipeline entry points the MCP server calls.
type Ports struct {
	Query    ports.QueryService
	Entities []string
	TopK     int
}

func (p *Ports) Validate() error {
	if p == nil || p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}

type Server struct {
	ports  *Ports
	server *server.MCPServer
}

func NewServer(p *Ports) (*Server, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: p,
		server: server.NewMCPServer(
			serverName,
			Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves MCP over the given streams until ctx is cancelled or the input closes.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.server).Listen(ctx, in, out)
}
