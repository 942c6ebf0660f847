// Package mcpadapter exposes the analysis pipeline as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/ports"
)

const maxImageBytes = 20 << 20

type Server struct {
	analysis ports.AnalysisService
	mcp      *server.MCPServer
}

func NewServer(analysis ports.AnalysisService, version string) *Server {
	s := &Server{
		analysis: analysis,
		mcp: server.NewMCPServer(
			"engineering-analysis-ai",
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.mcp.AddTool(mcp.NewTool("list_domains",
		mcp.WithDescription("List the engineering domains an analysis can focus on."),
	), s.listDomains)

	labels := make([]string, 0, len(domain.Domains()))
	for _, d := range domain.Domains() {
		labels = append(labels, d.String())
	}
	s.mcp.AddTool(mcp.NewTool("analyze_design",
		mcp.WithDescription("Describe an engineering design image and produce a structured engineering analysis. "+
			"Pass a description to skip automatic image description."),
		mcp.WithString("domain",
			mcp.Required(),
			mcp.Description("Engineering domain label or slug, e.g. "+strings.Join(labels[:3], ", ")),
		),
		mcp.WithString("image_base64", mcp.Description("PNG, JPEG or GIF image, standard base64.")),
		mcp.WithString("image_path", mcp.Description("Path to a PNG, JPEG or GIF file readable by the server.")),
		mcp.WithString("description", mcp.Description("Manual description of the design; bypasses the vision model.")),
		mcp.WithString("notes", mcp.Description("Additional context from the user.")),
	), s.analyzeDesign)

	return s
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

type domainEntry struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

func (s *Server) listDomains(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := make([]domainEntry, 0, len(domain.Domains()))
	for _, d := range domain.Domains() {
		entries = append(entries, domainEntry{Label: d.String(), Slug: d.Slug()})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) analyzeDesign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := domain.AnalyzeInput{
		Domain:            request.GetString("domain", ""),
		Notes:             request.GetString("notes", ""),
		ManualDescription: request.GetString("description", ""),
	}

	img, err := imageArgument(request.GetString("image_base64", ""), request.GetString("image_path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in.Image = img

	session, err := s.analysis.Analyze(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(domain.AsFailure(err).Message()), nil
	}

	switch session.State {
	case domain.StateReported:
		return mcp.NewToolResultText(formatReport(session)), nil
	case domain.StateAwaitingManualInput:
		msg := "The image could not be described automatically. Call analyze_design again with a description of the design."
		if f := session.LastFailure; f != nil {
			msg = f.Message() + " " + msg
		}
		return mcp.NewToolResultError(msg), nil
	default:
		if f := session.LastFailure; f != nil {
			return mcp.NewToolResultError(f.Message()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("analysis ended in state %s", session.State)), nil
	}
}

func formatReport(s *domain.Session) string {
	description, source, _ := s.Description()
	var b strings.Builder
	fmt.Fprintf(&b, "Domain: %s\n", s.Domain)
	fmt.Fprintf(&b, "Description (%s): %s\n\n", source, description)
	b.WriteString(s.Analysis.Report)
	return b.String()
}

func imageArgument(encoded, path string) (*domain.ImageAsset, error) {
	encoded = strings.TrimSpace(encoded)
	path = strings.TrimSpace(path)
	switch {
	case encoded != "" && path != "":
		return nil, fmt.Errorf("pass either image_base64 or image_path, not both")
	case encoded != "":
		if _, payload, found := strings.Cut(encoded, ";base64,"); found {
			encoded = payload
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("image_base64 is not valid base64: %w", err)
		}
		return sniffedAsset("image", data)
	case path != "":
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("read image_path: %w", err)
		}
		if info.Size() > maxImageBytes {
			return nil, fmt.Errorf("image_path exceeds %d bytes", maxImageBytes)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image_path: %w", err)
		}
		return sniffedAsset(filepath.Base(path), data)
	default:
		return nil, nil
	}
}

func sniffedAsset(name string, data []byte) (*domain.ImageAsset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	format, ok := domain.ImageFormatFromName(http.DetectContentType(data))
	if !ok {
		format, ok = domain.ImageFormatFromName(name)
	}
	if !ok {
		return nil, fmt.Errorf("unsupported image type; use PNG, JPEG or GIF")
	}
	if _, named := domain.ImageFormatFromName(name); !named {
		name += "." + string(format)
	}
	return &domain.ImageAsset{Filename: name, Format: format, Data: data}, nil
}
