package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for mindkeep resources.
	uriScheme = "mindkeep://"

	ideaGraphURI  = uriScheme + "ideas/graph"
	emailStatsURI = uriScheme + "emails/stats"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         ideaGraphURI,
		Name:        "idea-graph",
		Description: "Diary entries and the relationships between them",
		MIMEType:    "application/json",
	}, s.handleIdeaGraphResource)

	s.server.AddResource(&mcp.Resource{
		URI:         emailStatsURI,
		Name:        "email-stats",
		Description: "Counts of synced and processed emails",
		MIMEType:    "application/json",
	}, s.handleEmailStatsResource)
}

type graphNode struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

type graphEdge struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Type      string  `json:"type"`
	Strength  float64 `json:"strength"`
	Reasoning string  `json:"reasoning,omitempty"`
}

type graphView struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

func (s *Server) handleIdeaGraphResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	view := graphView{Nodes: []graphNode{}, Edges: []graphEdge{}}
	if s.ports.Ideas != nil {
		graph, err := s.ports.Ideas.IdeaGraph(ctx, s.ports.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("loading idea graph: %w", err)
		}
		for _, n := range graph.Nodes {
			tags := n.Tags
			if tags == nil {
				tags = []string{}
			}
			view.Nodes = append(view.Nodes, graphNode{
				ID: n.ID, Content: n.Content, Mood: n.Mood, Tags: tags, CreatedAt: n.CreatedAt,
			})
		}
		for _, e := range graph.Edges {
			view.Edges = append(view.Edges, graphEdge{
				Source: e.SourceID, Target: e.TargetID, Type: string(e.Type),
				Strength: e.Strength, Reasoning: e.Reasoning,
			})
		}
	}
	return jsonResource(req.Params.URI, view)
}

type statsView struct {
	Total       int        `json:"total"`
	Processed   int        `json:"processed"`
	Unprocessed int        `json:"unprocessed"`
	LastSync    *time.Time `json:"last_sync"`
}

func (s *Server) handleEmailStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Mail == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	stats, err := s.ports.Mail.EmailStats(ctx, s.ports.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("loading email stats: %w", err)
	}
	return jsonResource(req.Params.URI, statsView{
		Total:       stats.Total,
		Processed:   stats.Processed,
		Unprocessed: stats.Unprocessed,
		LastSync:    stats.LastSync,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
