package assistant

import (
	"context"
	"encoding/json"

	"github.com/2beens/fittrack/internal/stats"
	"github.com/2beens/fittrack/internal/workouts"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler parses tool input, calls the service and formats the MCP result.
type Handler struct {
	service service
}

func NewHandler(service service) *Handler {
	return &Handler{
		service: service,
	}
}

// GetDashboardTool returns the MCP tool handler for get_dashboard.
func (h *Handler) GetDashboardTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		dash, err := h.service.Dashboard(ctx)
		if err != nil {
			return errorResult("Error building dashboard: " + err.Error()), nil, nil
		}
		return jsonResult(dash), nil, nil
	}
}

// DailyTotalsInput is the input for get_daily_totals.
type DailyTotalsInput struct {
	Day string `json:"day,omitempty" jsonschema:"Calendar day (YYYY-MM-DD), defaults to today"`
}

// GetDailyTotalsTool returns the MCP tool handler for get_daily_totals.
func (h *Handler) GetDailyTotalsTool() func(context.Context, *mcp.CallToolRequest, DailyTotalsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in DailyTotalsInput) (*mcp.CallToolResult, any, error) {
		var day workouts.Day
		if in.Day != "" {
			parsed, err := workouts.ParseDay(in.Day)
			if err != nil {
				return errorResult("Invalid day: use YYYY-MM-DD"), nil, nil
			}
			day = parsed
		}
		totals, err := h.service.DailyTotals(ctx, day)
		if err != nil {
			return errorResult("Error computing totals: " + err.Error()), nil, nil
		}
		return jsonResult(totals), nil, nil
	}
}

// WeeklySeriesInput is the input for get_weekly_series.
type WeeklySeriesInput struct {
	Metric string `json:"metric,omitempty" jsonschema:"One of minutes, calories, steps (default minutes)"`
}

// GetWeeklySeriesTool returns the MCP tool handler for get_weekly_series.
func (h *Handler) GetWeeklySeriesTool() func(context.Context, *mcp.CallToolRequest, WeeklySeriesInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WeeklySeriesInput) (*mcp.CallToolResult, any, error) {
		metric, err := stats.ParseMetric(in.Metric)
		if err != nil {
			return errorResult("Invalid metric: use minutes, calories or steps"), nil, nil
		}
		series, err := h.service.WeeklySeries(ctx, metric)
		if err != nil {
			return errorResult("Error computing series: " + err.Error()), nil, nil
		}
		return jsonResult(series), nil, nil
	}
}

// ListWorkoutsInput is the input for list_workouts.
type ListWorkoutsInput struct {
	Type  string `json:"type,omitempty" jsonschema:"Exact workout type (Run, Walk, Cycling, HIIT, Yoga, Strength)"`
	Query string `json:"query,omitempty" jsonschema:"Case-insensitive text matched against type and notes"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of workouts to return, newest first"`
}

// ListWorkoutsTool returns the MCP tool handler for list_workouts.
func (h *Handler) ListWorkoutsTool() func(context.Context, *mcp.CallToolRequest, ListWorkoutsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ListWorkoutsInput) (*mcp.CallToolResult, any, error) {
		if in.Limit < 0 {
			return errorResult("Invalid limit: must not be negative"), nil, nil
		}
		list, err := h.service.ListWorkouts(ctx, stats.Filter{Type: in.Type, Query: in.Query}, in.Limit)
		if err != nil {
			return errorResult("Error listing workouts: " + err.Error()), nil, nil
		}
		return jsonResult(list), nil, nil
	}
}

// LogWorkoutInput is the input for log_workout.
type LogWorkoutInput struct {
	Type     string `json:"type" jsonschema:"Workout type (Run, Walk, Cycling, HIIT, Yoga, Strength)"`
	Duration int    `json:"duration" jsonschema:"Duration in minutes"`
	Calories int    `json:"calories,omitempty" jsonschema:"Calories burned"`
	Steps    int    `json:"steps,omitempty" jsonschema:"Steps taken"`
	Notes    string `json:"notes,omitempty" jsonschema:"Free text notes"`
}

// LogWorkoutTool returns the MCP tool handler for log_workout.
func (h *Handler) LogWorkoutTool() func(context.Context, *mcp.CallToolRequest, LogWorkoutInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in LogWorkoutInput) (*mcp.CallToolResult, any, error) {
		if !workouts.WorkoutType(in.Type).IsValid() {
			return errorResult("Invalid type: use Run, Walk, Cycling, HIIT, Yoga or Strength"), nil, nil
		}
		logged, err := h.service.LogWorkout(ctx, workouts.NewWorkout{
			Type:     workouts.Text(in.Type),
			Duration: nonNegative(in.Duration),
			Calories: nonNegative(in.Calories),
			Steps:    nonNegative(in.Steps),
			Notes:    workouts.Text(in.Notes),
		})
		if err != nil {
			return errorResult("Error logging workout: " + err.Error()), nil, nil
		}
		return jsonResult(logged), nil, nil
	}
}

func nonNegative(v int) workouts.Count {
	if v < 0 {
		return 0
	}
	return workouts.Count(v)
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}
