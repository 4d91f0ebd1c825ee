package assistant

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ServerName = "fittrack-assistant"

// NewServer builds an MCP server exposing the tracker's dashboard, stats and
// workout log. Used by cmd/fittrack_mcp over stdio and mounted at /mcp by the
// HTTP service.
func NewServer(svc service) *mcp.Server {
	h := NewHandler(svc)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_dashboard",
		Description: "Returns today's dashboard: calendar day, totals (steps, duration, calories, workouts), goal rings with percent and degrees, the goals and the six most recent workouts.",
	}, h.GetDashboardTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_daily_totals",
		Description: "Returns summed steps, duration minutes, calories and the workout count for one calendar day. Optional arg: day (YYYY-MM-DD), defaults to today.",
	}, h.GetDailyTotalsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_weekly_series",
		Description: "Returns seven daily points (oldest first, ending today) for a metric with weekday labels and the series max. Arg: metric (minutes, calories or steps).",
	}, h.GetWeeklySeriesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_workouts",
		Description: "Returns logged workouts newest first. Optional filters: type (exact), query (substring of type or notes, case-insensitive), limit.",
	}, h.ListWorkoutsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "log_workout",
		Description: "Logs a new workout stamped with the current time. Args: type, duration (minutes); optional: calories, steps, notes. Returns the stored workout.",
	}, h.LogWorkoutTool())

	return s
}
