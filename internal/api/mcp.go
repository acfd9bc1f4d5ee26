package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kalambet/prefs/internal/preferences"
)

// NewMCPServer creates an MCP server exposing the preference stores as tools.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := server.NewMCPServer(
		"prefs",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("prefs: namespaced key-value preferences stored in the platform preference store."),
		server.WithRecovery(),
	)

	groupArg := mcp.WithString("group", mcp.Description(fmt.Sprintf("Preference group (default %s; NativeStorage selects the legacy layout)", deps.Group)))

	s.AddTool(
		mcp.NewTool("get_preference",
			mcp.WithDescription(`Read a preference value as {"value": ...}; value is null when the key is unset.`),
			mcp.WithString("key", mcp.Description("Preference key"), mcp.Required()),
			groupArg,
		),
		mcpGetPreference(deps),
	)

	s.AddTool(
		mcp.NewTool("set_preference",
			mcp.WithDescription("Store a preference value, replacing any previous value."),
			mcp.WithString("key", mcp.Description("Preference key"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to store"), mcp.Required()),
			groupArg,
		),
		mcpSetPreference(deps),
	)

	s.AddTool(
		mcp.NewTool("remove_preference",
			mcp.WithDescription("Delete a preference. Removing an unset key is not an error."),
			mcp.WithString("key", mcp.Description("Preference key"), mcp.Required()),
			groupArg,
		),
		mcpRemovePreference(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_preferences",
			mcp.WithDescription("Delete every preference in a group."),
			groupArg,
		),
		mcpClearPreferences(deps),
	)

	s.AddTool(
		mcp.NewTool("list_preferences",
			mcp.WithDescription("List the keys stored in a group as a JSON array."),
			groupArg,
		),
		mcpListPreferences(deps),
	)

	return s
}

func mcpStore(deps Deps, req mcp.CallToolRequest) *preferences.Store {
	g := deps.Group
	if name := req.GetString("group", ""); name != "" {
		g = preferences.ParseGroup(name)
	}
	return deps.Stores.Open(g)
}

func mcpGetPreference(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}

		val, ok, err := mcpStore(deps, req).Get(key)
		if err != nil {
			deps.Logger.Warn("mcp get_preference failed", zap.String("key", key), zap.Error(err))
			return mcpError(fmt.Sprintf("failed to get preference: %v", err)), nil
		}
		var resp valueResponse
		if ok {
			resp.Value = &val
		}
		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal value: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetPreference(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		if err := mcpStore(deps, req).Set(key, value); err != nil {
			deps.Logger.Warn("mcp set_preference failed", zap.String("key", key), zap.Error(err))
			return mcpError(fmt.Sprintf("failed to set preference: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s", key, value)), nil
	}
}

func mcpRemovePreference(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}

		if err := mcpStore(deps, req).Remove(key); err != nil {
			return mcpError(fmt.Sprintf("failed to remove preference: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Removed %s", key)), nil
	}
}

func mcpClearPreferences(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		store := mcpStore(deps, req)
		if err := store.RemoveAll(); err != nil {
			return mcpError(fmt.Sprintf("failed to clear preferences: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Cleared group %s", store.Configuration().Group())), nil
	}
}

func mcpListPreferences(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keys, err := mcpStore(deps, req).Keys()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list preferences: %v", err)), nil
		}
		if keys == nil {
			keys = []string{}
		}
		sort.Strings(keys)

		b, err := json.Marshal(keys)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal keys: %v", err)), nil
		}
		return mcpText(string(b)), nil
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
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
