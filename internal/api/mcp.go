package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tracklab/stocktrack/internal/history"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *history.Store
	Now   func() time.Time // nil means time.Now
}

// NewMCPServer creates an MCP server with the inventory tools registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := server.NewMCPServer(
		"stocktrack",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("stocktrack — local inventory history: stock level trends, change events, and low-stock alerts."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("inventory_history",
			mcp.WithDescription("Return the time series of inventory levels: overall totals, one category, or one product by SKU."),
			mcp.WithString("view", mcp.Description("One of: total, category, entity (default total)")),
			mcp.WithString("key", mcp.Description("Category name for view=category, SKU for view=entity")),
			mcp.WithNumber("days", mcp.Description("Restrict to the last N days (default: all retained history)")),
		),
		mcpInventoryHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("inventory_snapshot",
			mcp.WithDescription("Return the most recent inventory snapshot: totals, product count, and per-category rollups."),
		),
		mcpInventorySnapshot(deps),
	)

	s.AddTool(
		mcp.NewTool("low_stock",
			mcp.WithDescription("List products at or below their reorder threshold in the latest snapshot."),
		),
		mcpLowStock(deps),
	)

	return s
}

func mcpWindow(req mcp.CallToolRequest, now time.Time) history.Window {
	days := req.GetInt("days", 0)
	if days <= 0 {
		return history.AllTime()
	}
	return history.LastDays(days, now)
}

func mcpInventoryHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		view := req.GetString("view", "total")
		key := req.GetString("key", "")
		win := mcpWindow(req, deps.Now())

		var (
			points []history.Point
			result map[string]any
		)
		switch view {
		case "total":
			points = deps.Store.QueryPoints(history.TotalView(), win)
			result = map[string]any{"view": "total"}
		case "category":
			if key == "" {
				return mcpError("key is required for view=category"), nil
			}
			points = deps.Store.QueryPoints(history.CategoryView(key), win)
			result = map[string]any{"view": "category", "category": key}
		case "entity":
			if key == "" {
				return mcpError("key is required for view=entity"), nil
			}
			points = deps.Store.QueryPoints(history.EntityView(key), win)
			result = map[string]any{"view": "entity", "sku": key}
			if summary, ok := deps.Store.SummarizeEntity(key, win); ok {
				result["summary"] = summary
			}
		default:
			return mcpError(fmt.Sprintf("unknown view %q: must be total, category, or entity", view)), nil
		}

		result["points"] = pointsOrEmpty(points)
		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal history: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpInventorySnapshot(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, ok, err := deps.Store.Latest()
		if err != nil {
			return mcpError(fmt.Sprintf("loading snapshot: %v", err)), nil
		}
		if !ok {
			return mcpError("no snapshots recorded yet"), nil
		}
		b, err := json.Marshal(snap)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal snapshot: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLowStock(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, ok, err := deps.Store.Latest()
		if err != nil {
			return mcpError(fmt.Sprintf("loading snapshot: %v", err)), nil
		}
		if !ok {
			return mcpError("no snapshots recorded yet"), nil
		}

		type lowItem struct {
			SKU              string `json:"sku"`
			Name             string `json:"name"`
			Category         string `json:"category"`
			OnHand           int    `json:"onHand"`
			OnOrder          int    `json:"onOrder"`
			ReorderThreshold int    `json:"reorderThreshold"`
		}

		items := []lowItem{}
		for sku, e := range snap.ByEntity {
			if e.OnHand <= e.ReorderThreshold {
				items = append(items, lowItem{
					SKU:              sku,
					Name:             e.Name,
					Category:         e.Category,
					OnHand:           e.OnHand,
					OnOrder:          e.OnOrder,
					ReorderThreshold: e.ReorderThreshold,
				})
			}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].SKU < items[j].SKU })

		b, err := json.Marshal(map[string]any{
			"takenAt": snap.TakenAt,
			"items":   items,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal low stock items: %v", err)), nil
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
