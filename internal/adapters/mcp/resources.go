package mcpadapter

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const entitiesURI = "athletes://entities"

func (s *Server) registerResources() {
	resource := mcp.NewResource(entitiesURI, "Athlete catalog",
		mcp.WithResourceDescription("Athletes the corpus was built from, in routing order"),
		mcp.WithMIMEType("application/json"),
	)
	s.server.AddResource(resource, s.handleEntities)
}

func (s *Server) handleEntities(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entities := s.ports.Entities
	if entities == nil {
		entities = []string{}
	}
	data, err := json.Marshal(map[string][]string{"entities": entities})
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      entitiesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
