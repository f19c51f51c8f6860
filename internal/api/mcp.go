package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/tend/internal/checkin"
	"github.com/kalambet/tend/internal/roster"
	"github.com/kalambet/tend/internal/schedule"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Roster   *roster.Service
	Recorder *checkin.Recorder
	Owner    string
}

// NewMCPServer creates an MCP server exposing the roster and check-in
// recorder as tools, so an assistant can answer "who am I overdue to talk
// to?" and record completed check-ins.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"tend",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("tend — recurring check-in reminders for people you want to stay in touch with."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_due_contacts",
			mcp.WithDescription("List contacts due for a check-in, earliest-overdue first."),
			mcp.WithString("date", mcp.Description("Reference date (YYYY-MM-DD); defaults to today")),
		),
		mcpListDue(deps),
	)

	s.AddTool(
		mcp.NewTool("record_checkin",
			mcp.WithDescription("Record a completed check-in with a contact and advance their next due date."),
			mcp.WithString("contact_id", mcp.Description("ID of the contact"), mcp.Required()),
			mcp.WithString("summary", mcp.Description("What you talked about (may be empty)")),
		),
		mcpRecordCheckin(deps),
	)

	s.AddTool(
		mcp.NewTool("add_contact",
			mcp.WithDescription("Add a person to check in with on a recurring cadence."),
			mcp.WithString("name", mcp.Description("Display name"), mcp.Required()),
			mcp.WithString("cadence", mcp.Description("weekly, monthly, quarterly, semi-annual or annual (default monthly)")),
			mcp.WithString("notes", mcp.Description("Free-form notes")),
			mcp.WithString("birthday", mcp.Description("Birthday (YYYY-MM-DD)")),
		),
		mcpAddContact(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"tend://roster",
			"Contact Roster",
			mcp.WithResourceDescription("All contacts with overdue status as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRoster(deps),
	)

	return s
}

func mcpListDue(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var ref time.Time
		if s := req.GetString("date", ""); s != "" {
			d, err := time.Parse(time.DateOnly, s)
			if err != nil {
				return mcpError("date must be a YYYY-MM-DD date"), nil
			}
			ref = d
		}

		views, err := deps.Roster.ListDue(ctx, deps.Owner, ref)
		if err != nil {
			return mcpError(fmt.Sprintf("listing due contacts failed: %v", err)), nil
		}

		b, err := json.Marshal(toViewJSON(views))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal contacts: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRecordCheckin(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contactID, err := req.RequireString("contact_id")
		if err != nil {
			return mcpError("contact_id is required"), nil
		}
		summary := req.GetString("summary", "")

		res, err := deps.Recorder.Record(ctx, deps.Owner, contactID, summary)
		if err != nil {
			return mcpError(fmt.Sprintf("recording check-in failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Recorded check-in with %s; next due %s",
			res.Contact.Name, res.Contact.NextDue.Format(time.DateOnly))), nil
	}
}

func mcpAddContact(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		nc := roster.NewContact{
			Name:    name,
			Cadence: schedule.Cadence(req.GetString("cadence", "")),
			Notes:   req.GetString("notes", ""),
		}
		if s := req.GetString("birthday", ""); s != "" {
			b, err := time.Parse(time.DateOnly, s)
			if err != nil {
				return mcpError("birthday must be a YYYY-MM-DD date"), nil
			}
			nc.Birthday = &b
		}

		c, err := deps.Roster.Create(ctx, deps.Owner, nc)
		if err != nil {
			return mcpError(fmt.Sprintf("adding contact failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Added %s (%s, first check-in due %s)",
			c.Name, c.Cadence, c.NextDue.Format(time.DateOnly))), nil
	}
}

func mcpResourceRoster(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		views, err := deps.Roster.ListAll(ctx, deps.Owner)
		if err != nil {
			return nil, fmt.Errorf("failed to list contacts: %w", err)
		}

		b, err := json.Marshal(toViewJSON(views))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal roster: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
	}
}
