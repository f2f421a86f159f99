// Package mcp provides the MCP (Model Context Protocol) server for
// schemadoc. It exposes the indexed vocabulary to MCP clients.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/schemadoc-go/internal/graph"
	"github.com/Benny93/schemadoc-go/internal/storage"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// Version is reported to clients during initialization.
const Version = "0.1.0"

const (
	ToolSearch   = "vocab_search"
	ToolType     = "vocab_type"
	ToolProperty = "vocab_property"
	ToolChildren = "vocab_children"

	ResourceOverview = "schemadoc://overview"

	defaultSearchLimit = 20
	snippetLimit       = 200
)

// Server represents the MCP server.
type Server struct {
	storage StorageBackend
	server  *mcp.Server
	logger  *slog.Logger
}

// StorageBackend is the read side of storage.Backend used by the server.
type StorageBackend interface {
	FTSSearch(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
	GetNode(ctx context.Context, nodeID string) (*graph.GraphNode, error)
	GetNodesByLabel(ctx context.Context, label graph.NodeLabel) ([]*graph.GraphNode, error)
	GetNeighbors(ctx context.Context, nodeID string, relType graph.RelType, dir storage.Direction) ([]*graph.GraphNode, error)
	GetDocument(ctx context.Context, nodeID string) (*storage.Document, error)
	NodeCount() int
	RelationshipCount() int
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server backed by the given store. A nil
// logger uses slog.Default.
func NewServer(store StorageBackend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		storage: store,
		logger:  logger,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "schemadoc",
		Version: Version,
	}, &mcp.ServerOptions{Logger: logger})

	s.registerTools()
	s.registerResources()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	nameSchema := func(what string) *jsonschema.Schema {
		return &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {Type: "string", Description: what},
			},
			Required: []string{"name"},
		}
	}
	return []Tool{
		{
			Name:        ToolSearch,
			Description: "Search vocabulary types and properties by name and description. Returns ranked matches.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search query text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolType,
			Description: "Show the documentation page of a type: description, parents and properties.",
			InputSchema: nameSchema("Type name, e.g. Person"),
		},
		{
			Name:        ToolProperty,
			Description: "Show the documentation page of a property: description, domain and range.",
			InputSchema: nameSchema("Property name, e.g. birthDate"),
		},
		{
			Name:        ToolChildren,
			Description: "List the direct subtypes of a type.",
			InputSchema: nameSchema("Type name, e.g. CreativeWork"),
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         ResourceOverview,
			Name:        "Vocabulary Overview",
			Description: "Counts of indexed types, properties and relationships",
			MimeType:    "text/markdown",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	str := func(key string) string {
		v, _ := args[key].(string)
		return strings.TrimSpace(v)
	}
	switch name {
	case ToolSearch:
		limit, _ := args["limit"].(float64)
		if limit <= 0 {
			limit = defaultSearchLimit
		}
		return handleSearch(ctx, s.storage, str("query"), int(limit))
	case ToolType:
		return handleEntity(ctx, s.storage, graph.NodeClass, str("name"))
	case ToolProperty:
		return handleEntity(ctx, s.storage, graph.NodeProperty, str("name"))
	case ToolChildren:
		return handleChildren(ctx, s.storage, str("name"))
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case ResourceOverview:
		return getOverview(ctx, s.storage)
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves MCP over the transport until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	if t == nil {
		return fmt.Errorf("transport must not be nil")
	}
	return s.server.Run(ctx, t)
}

// Connect starts a session on the transport without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	for _, tool := range s.ListTools() {
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.toolHandler(tool.Name))
	}
}

func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return toolError(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
		}
		text, err := s.CallTool(ctx, name, args)
		if err != nil {
			s.logger.Warn("Tool call failed", slog.String("tool", name), slog.String("error", err.Error()))
			return toolError(err.Error()), nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func (s *Server) registerResources() {
	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.ReadResource(ctx, req.Params.URI)
			if err != nil {
				return nil, mcp.ResourceNotFoundError(req.Params.URI)
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{URI: res.URI, MIMEType: res.MimeType, Text: text}},
			}, nil
		})
	}
}

// Tool Handlers

func handleSearch(ctx context.Context, store StorageBackend, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	results, err := store.FTSSearch(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found", nil
	}
	return formatSearchResults(results, query), nil
}

// formatSearchResults formats search results as markdown.
func formatSearchResults(results []storage.SearchResult, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", len(results), query)

	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s** (%s, %s)\n", i+1, r.Name, r.Label, r.Source)
		if r.Path != "" {
			fmt.Fprintf(&sb, "   Page: %s\n", r.Path)
		}
		fmt.Fprintf(&sb, "   Score: %.3f\n", r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", truncate(r.Snippet, snippetLimit))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Next: Use `%s` or `%s` on a result for its full page.", ToolType, ToolProperty)
	return sb.String()
}

// resolveNode finds a node by exact name, falling back to a
// case-insensitive match among search hits with the same label.
func resolveNode(ctx context.Context, store StorageBackend, label graph.NodeLabel, name string) (*graph.GraphNode, error) {
	node, err := store.GetNode(ctx, graph.GenerateID(label, name))
	if err != nil || node != nil {
		return node, err
	}

	results, err := store.FTSSearch(ctx, name, 10)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Label == string(label) && strings.EqualFold(r.Name, name) {
			return store.GetNode(ctx, r.NodeID)
		}
	}
	return nil, nil
}

func kindName(label graph.NodeLabel) string {
	if label == graph.NodeProperty {
		return "Property"
	}
	return "Type"
}

type section struct {
	title string
	rel   graph.RelType
	dir   storage.Direction
}

var (
	typeSections = []section{
		{"Parents", graph.RelSubclassOf, storage.Outgoing},
		{"Properties", graph.RelDomainIncludes, storage.Incoming},
	}
	propertySections = []section{
		{"Domain", graph.RelDomainIncludes, storage.Outgoing},
		{"Range", graph.RelRangeIncludes, storage.Outgoing},
	}
)

func handleEntity(ctx context.Context, store StorageBackend, label graph.NodeLabel, name string) (string, error) {
	if name == "" {
		return "No name provided", nil
	}

	node, err := resolveNode(ctx, store, label, name)
	if err != nil {
		return "", err
	}
	if node == nil {
		return fmt.Sprintf("%s '%s' not found in index", kindName(label), name), nil
	}

	doc, err := store.GetDocument(ctx, node.ID)
	if err != nil {
		return "", err
	}
	if doc != nil {
		return doc.Markdown, nil
	}

	// Not selected for the corpus: describe it from the graph.
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", node.Name)
	fmt.Fprintf(&sb, "%s from the %s vocabulary (%s).\n\n", kindName(label), node.Source, node.URI)
	if node.Description != "" {
		sb.WriteString(node.Description + "\n\n")
	}

	sections := typeSections
	if label == graph.NodeProperty {
		sections = propertySections
	}
	for _, sec := range sections {
		nodes, err := store.GetNeighbors(ctx, node.ID, sec.rel, sec.dir)
		if err != nil {
			return "", err
		}
		if len(nodes) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s (%d)\n", sec.title, len(nodes))
		for _, n := range nodes {
			fmt.Fprintf(&sb, "- %s\n", n.Name)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("This entity is not part of the generated corpus.")
	return sb.String(), nil
}

func handleChildren(ctx context.Context, store StorageBackend, name string) (string, error) {
	if name == "" {
		return "No name provided", nil
	}

	node, err := resolveNode(ctx, store, graph.NodeClass, name)
	if err != nil {
		return "", err
	}
	if node == nil {
		return fmt.Sprintf("Type '%s' not found in index", name), nil
	}

	children, err := store.GetNeighbors(ctx, node.ID, graph.RelSubclassOf, storage.Incoming)
	if err != nil {
		return "", err
	}
	if len(children) == 0 {
		return fmt.Sprintf("**%s** has no subtypes.", node.Name), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Subtypes of **%s** (%d):\n\n", node.Name, len(children))
	for _, c := range children {
		fmt.Fprintf(&sb, "- %s (%s)\n", c.Name, c.Source)
	}
	return sb.String(), nil
}

// Resource Handlers

func getOverview(ctx context.Context, store StorageBackend) (string, error) {
	var sb strings.Builder
	sb.WriteString("# Schemadoc Vocabulary Overview\n\n")
	fmt.Fprintf(&sb, "**Nodes:** %d\n", store.NodeCount())
	fmt.Fprintf(&sb, "**Relationships:** %d\n", store.RelationshipCount())

	sb.WriteString("\n| Kind | Total | Extension |\n")
	sb.WriteString("|------|-------|-----------|\n")
	for _, label := range []graph.NodeLabel{graph.NodeClass, graph.NodeProperty} {
		nodes, err := store.GetNodesByLabel(ctx, label)
		if err != nil {
			return "", err
		}
		ext := 0
		for _, n := range nodes {
			if n.Source == string(vocab.SourceExtension) {
				ext++
			}
		}
		fmt.Fprintf(&sb, "| %s | %d | %d |\n", label, len(nodes), ext)
	}

	sb.WriteString("\n## Relationship Types\n\n")
	sb.WriteString("- subclass_of: Type inherits from a parent type\n")
	sb.WriteString("- domain_includes: Property applies to a type\n")
	sb.WriteString("- range_includes: Property values are of a type\n")
	sb.WriteString("- sub_property_of, inverse_of, superseded_by: Property links\n")

	return sb.String(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
