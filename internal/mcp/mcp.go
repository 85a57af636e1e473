// Package mcp exposes ytscout functionality as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"ytscout/internal/config"
	"ytscout/internal/research"
	"ytscout/internal/youtube"
)

// Server wraps the MCP server and its collaborators.
type Server struct {
	cfg        *config.Config
	yt         *youtube.Client
	researcher *research.Researcher
	mcpServer  *server.MCPServer
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *config.Config, yt *youtube.Client, researcher *research.Researcher) *Server {
	mcpServer := server.NewMCPServer(
		"ytscout-server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &Server{
		cfg:        cfg,
		yt:         yt,
		researcher: researcher,
		mcpServer:  mcpServer,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("search_youtube",
		mcp.WithDescription("Search YouTube for videos matching a query. Returns id, title, channel, and URL per result."),
		mcp.WithString("query",
			mcp.Description("Search query"),
			mcp.Required(),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (1-50)"),
		),
		mcp.WithString("upload_date",
			mcp.Description("Upload date filter: Last hour, Today, This week, This month, This year"),
		),
		mcp.WithString("sort_by",
			mcp.Description("Sort order: Relevance, Upload date, View count, Rating"),
		),
	), s.handleSearch)

	s.mcpServer.AddTool(mcp.NewTool("get_youtube_transcript",
		mcp.WithDescription("Get the caption transcript of a YouTube video. Fails if the video has no captions."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or 11-character video ID"),
			mcp.Required(),
		),
	), s.handleTranscript)

	s.mcpServer.AddTool(mcp.NewTool("research_topic",
		mcp.WithDescription("Run a full research pass on a topic: search YouTube, scrape transcripts, and generate a markdown report through the LLM pipeline. Requires an OpenAI API key and can take minutes."),
		mcp.WithString("topic",
			mcp.Description("Topic to research"),
			mcp.Required(),
		),
		mcp.WithBoolean("rewrite",
			mcp.Description("Let the LLM rewrite the topic into a search query first"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum videos to scrape"),
		),
	), s.handleResearch)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required and must be a string"), nil
	}
	limit := request.GetInt("limit", s.cfg.MaxResults)
	filters := youtube.Filters{
		UploadDate: request.GetString("upload_date", ""),
		SortBy:     request.GetString("sort_by", ""),
	}

	videos, err := s.yt.Search(ctx, query, filters, limit)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("search error", err), nil
	}

	var buf strings.Builder
	for i, v := range videos {
		fmt.Fprintf(&buf, "%d. %s\n   Channel: %s\n   ID: %s\n   URL: %s\n", i+1, v.Title, v.Channel, v.ID, v.URL)
		if v.Snippet != "" {
			fmt.Fprintf(&buf, "   %s\n", v.Snippet)
		}
	}
	if buf.Len() == 0 {
		buf.WriteString("No videos found")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(buf.String())},
	}, nil
}

func (s *Server) handleTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}
	videoID, err := youtube.ExtractVideoID(url)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid video URL or ID", err), nil
	}

	transcript, err := s.yt.Transcript(ctx, videoID, s.cfg.Languages)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("no transcript available", err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(transcript)},
	}, nil
}

func (s *Server) handleResearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("topic parameter is required and must be a string"), nil
	}
	opts := research.Options{
		Rewrite:    request.GetBool("rewrite", false),
		MaxResults: request.GetInt("max_results", 0),
	}

	runReport, err := s.researcher.Run(ctx, topic, opts)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("research error", err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(runReport.Markdown())},
	}, nil
}

// Start serves MCP over the given transport: "stdio" (default) or "http".
func (s *Server) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httpServer.Start(fmt.Sprintf(":%d", port))
	}
	return server.ServeStdio(s.mcpServer)
}
