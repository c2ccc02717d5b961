package mcp

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-tax-filer/internal/extract"
	"github.com/a3tai/mcp-tax-filer/internal/filing"
	"github.com/a3tai/mcp-tax-filer/internal/profile"
	"github.com/a3tai/mcp-tax-filer/internal/report"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/mark3labs/mcp-go/mcp"
)

// DocumentFile is one PDF found in the document directory
type DocumentFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

func (s *Server) handleExtractDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := s.documents.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var declared *taxdoc.DocumentType
	if dt := request.GetString("document_type", ""); dt != "" {
		parsed, err := taxdoc.ParseDocumentType(dt)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		declared = &parsed
	}

	text, err := s.service.Source().ReadFile(resolved)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.service.Extractor().Extract(extract.Input{
		Source:       filepath.Base(resolved),
		Text:         text.Text,
		DeclaredType: declared,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.logger.Info().
		Str("tool", "tax_extract_document").
		Str("source", doc.Source).
		Str("type", string(doc.DocumentType)).
		Float64("confidence", doc.Confidence).
		Msg("Document extracted")

	return mcp.NewToolResultText(report.Document(doc, text.Method)), nil
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.ToLower(request.GetString("query", ""))

	files, err := s.listDocuments(query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatDocumentList(s.documents.Root(), query, files)), nil
}

// listDocuments walks the document directory for PDFs whose name contains
// query
func (s *Server) listDocuments(query string) ([]DocumentFile, error) {
	root := s.documents.Root()
	var files []DocumentFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(d.Name()), query) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		files = append(files, DocumentFile{Path: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *Server) handleCompute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := s.filingRequest(request, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rep, err := s.service.File(ctx, *req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report.Filing(rep)), nil
}

func (s *Server) handleFillForm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := s.filingRequest(request, true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rep, err := s.service.File(ctx, *req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report.Filing(rep)), nil
}

// filingRequest turns tool arguments into a filing request with every path
// resolved inside its sandbox. When fill is set the form output is required.
func (s *Server) filingRequest(request mcp.CallToolRequest, fill bool) (*filing.Request, error) {
	paths, err := request.RequireStringSlice("documents")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("documents cannot be empty")
	}

	declared := request.GetStringSlice("document_types", nil)
	if len(declared) > 0 && len(declared) != len(paths) {
		return nil, fmt.Errorf("document_types must have one entry per document: got %d for %d documents", len(declared), len(paths))
	}

	req := &filing.Request{}
	for i, p := range paths {
		resolved, err := s.documents.Resolve(p)
		if err != nil {
			return nil, err
		}
		ref := filing.DocumentRef{Path: resolved}
		if len(declared) > 0 && declared[i] != "" {
			dt, err := taxdoc.ParseDocumentType(declared[i])
			if err != nil {
				return nil, err
			}
			ref.DeclaredType = &dt
		}
		req.Documents = append(req.Documents, ref)
	}

	prof, err := s.profileArgument(request)
	if err != nil {
		return nil, err
	}
	req.Profile = prof.Profile
	req.ProfileNotes = prof.Notes

	output := request.GetString("output", "")
	if fill && output == "" {
		return nil, fmt.Errorf("required argument \"output\" not found")
	}
	if output != "" {
		if !strings.EqualFold(filepath.Ext(output), ".pdf") {
			return nil, fmt.Errorf("output must be a .pdf file: %s", output)
		}
		if req.Output, err = s.outputs.ResolveOutput(output); err != nil {
			return nil, err
		}
		if req.Template, err = s.templatePath(request.GetString("template", "")); err != nil {
			return nil, err
		}
	}

	if sheet := request.GetString("worksheet", ""); sheet != "" {
		if !strings.EqualFold(filepath.Ext(sheet), ".xlsx") {
			return nil, fmt.Errorf("worksheet must be an .xlsx file: %s", sheet)
		}
		if req.Worksheet, err = s.outputs.ResolveOutput(sheet); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// profileArgument reads the inline profile object, or the profile file when
// no object was given
func (s *Server) profileArgument(request mcp.CallToolRequest) (*profile.Result, error) {
	args := request.GetArguments()
	if raw, ok := args["profile"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("profile must be an object")
		}
		return profile.ParseMap(m)
	}

	path := request.GetString("profile_path", "")
	if path == "" {
		return nil, fmt.Errorf("either profile or profile_path is required")
	}
	resolved, err := s.documents.Resolve(path)
	if err != nil {
		return nil, err
	}
	return profile.Load(resolved)
}

// templatePath resolves a template argument, falling back to the
// configured template. The configured one may live outside the document
// directory.
func (s *Server) templatePath(arg string) (string, error) {
	if arg == "" {
		if s.config.TemplatePath == "" {
			return "", fmt.Errorf("no template given and no default template configured")
		}
		return s.config.TemplatePath, nil
	}
	if s.config.TemplatePath != "" && filepath.Clean(arg) == s.config.TemplatePath {
		return s.config.TemplatePath, nil
	}
	return s.documents.Resolve(arg)
}

func (s *Server) handleTemplateFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.templatePath(request.GetString("path", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tmpl, err := s.service.LoadTemplate(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report.TemplateFields(path, tmpl)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.listDocuments("")
	if err != nil {
		files = nil
	}
	return mcp.NewToolResultText(s.formatServerInfo(files)), nil
}
