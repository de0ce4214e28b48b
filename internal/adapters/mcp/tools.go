package mcpadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

const askToolName = "ask_athletes"

func (s *Server) registerTools() {
	tool := mcp.NewTool(askToolName,
		mcp.WithDescription(fmt.Sprintf(
			"Answer a question using only indexed documents about these athletes: %s.",
			strings.Join(s.ports.Entities, ", "),
		)),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("the question to answer; naming an athlete restricts the search to that athlete"),
		),
		mcp.WithNumber("limit",
			mcp.Description("number of passages to retrieve (default from server configuration)"),
		),
	)
	s.server.AddTool(tool, s.handleAsk)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)
	if limit <= 0 {
		limit = s.ports.TopK
	}

	answer, err := s.ports.Query.Answer(ctx, question, limit)
	if err != nil {
		msg := err.Error()
		if answer != nil && len(answer.Sources) > 0 {
			msg += "\n\n" + formatSources(answer.Sources)
		}
		return mcp.NewToolResultError(msg), nil
	}

	text := answer.Text
	if len(answer.Sources) > 0 {
		text += "\n\n" + formatSources(answer.Sources)
	}
	return mcp.NewToolResultText(text), nil
}

func formatSources(sources domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Sources:")
	for i, src := range sources {
		fmt.Fprintf(&b, "\n[%d] %s (%s, score %.2f)", i+1, src.Entity, src.SourceID, src.Score)
	}
	return b.String()
}
