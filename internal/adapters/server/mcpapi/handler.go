// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/ctrain/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// defaultAgentName attributes MCP mutations that do not name their agent.
const defaultAgentName = "mcp"

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the calculator, form and submission tools.
func NewHandler(cfg Config, service common.TrainingService) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("training service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerCalculatorTools(mcpSrv, service)
	registerFormTools(mcpSrv, service)
	registerSubmissionTools(mcpSrv, service)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "ctrain"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerCalculatorTools registers the stateless credit and goal tools.
func registerCalculatorTools(srv *mcpserver.MCPServer, calc common.CatalogService) {
	srv.AddTool(
		mcp.NewTool(
			"ctrain.compute_credits",
			mcp.WithDescription("Compute the credits one activity value is worth, without touching the form."),
			mcp.WithString("activity", mcp.Required(), mcp.Description("Activity name from the rate table")),
			mcp.WithNumber("value", mcp.Required(), mcp.Description("Raw value (hours, CEUs, months, ...)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			activity, err := req.RequireString("activity")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			value, err := req.RequireFloat("value")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			quote, err := calc.ComputeCredits(ctx, activity, value)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("compute_credits", quote)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"ctrain.resolve_goal",
			mcp.WithDescription("Return the credit goal for a qualification standard."),
			mcp.WithString("qualification", mcp.Required(), mcp.Description("Qualification standard name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			qualification, err := req.RequireString("qualification")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			goal, err := calc.ResolveGoal(ctx, qualification)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("resolve_goal", goal)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"ctrain.get_catalog",
			mcp.WithDescription("List the rate table, rotational durations and qualification goals."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			catalog, err := calc.Catalog(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_catalog", catalog)
		},
	)
}

// registerFormTools registers form read and mutation tools.
func registerFormTools(srv *mcpserver.MCPServer, forms common.FormService) {
	srv.AddTool(
		mcp.NewTool(
			"ctrain.get_form",
			mcp.WithDescription("Return the current form with records, attachments and progress."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			form, err := forms.GetForm(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_form", form)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"ctrain.set_profile",
			mcp.WithDescription("Update the submitter name, 5-year period or qualification. Omitted fields stay unchanged."),
			mcp.WithString("name", mcp.Description("Submitter name")),
			mcp.WithString("period", mcp.Description("5-year reporting period")),
			mcp.WithString("qualification", mcp.Description("Qualification standard")),
			mcp.WithString("agent_name", mcp.Description("Agent name recorded on the change")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				Name          *string `json:"name"`
				Period        *string `json:"period"`
				Qualification *string `json:"qualification"`
				AgentName     string  `json:"agent_name"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			profile, err := forms.SetProfile(ctx, common.SetProfileRequest{
				Name:          args.Name,
				Period:        args.Period,
				Qualification: args.Qualification,
				Actor:         agentActor(args.AgentName),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("set_profile", profile)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"ctrain.add_activity",
			mcp.WithDescription("Append one blank activity record and return it."),
			mcp.WithString("agent_name", mcp.Description("Agent name recorded on the change")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rec, err := forms.AddActivity(ctx, agentActor(req.GetString("agent_name", "")))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("add_activity", rec)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"ctrain.update_activity",
			mcp.WithDescription("Change the activity, completion date or value of one record. Credits are recomputed."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
			mcp.WithString("activity", mcp.Description("Activity name from the rate table")),
			mcp.WithString("completion_date", mcp.Description("Completion date (YYYY-MM-DD)")),
			mcp.WithNumber("value", mcp.Description("Raw value")),
			mcp.WithString("agent_name", mcp.Description("Agent name recorded on the change")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args struct {
				ID             string   `json:"id"`
				Activity       *string  `json:"activity"`
				CompletionDate *string  `json:"completion_date"`
				Value          *float64 `json:"value"`
				AgentName      string   `json:"agent_name"`
			}
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.ID) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "id" not found`), nil
			}
			rec, err := forms.UpdateActivity(ctx, common.UpdateActivityRequest{
				ID:             args.ID,
				Activity:       args.Activity,
				CompletionDate: args.CompletionDate,
				Value:          args.Value,
				Actor:          agentActor(args.AgentName),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("update_activity", rec)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"ctrain.remove_activity",
			mcp.WithDescription("Remove one activity record by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
			mcp.WithString("agent_name", mcp.Description("Agent name recorded on the change")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := forms.RemoveActivity(ctx, id, agentActor(req.GetString("agent_name", ""))); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("remove_activity", map[string]any{
				"id":      id,
				"removed": true,
			})
		},
	)
}

// registerSubmissionTools registers the submit tool.
func registerSubmissionTools(srv *mcpserver.MCPServer, submissions common.SubmissionService) {
	srv.AddTool(
		mcp.NewTool(
			"ctrain.submit",
			mcp.WithDescription("Package the form and deliver it through a configured sink. The form resets on success when configured."),
			mcp.WithString("sink", mcp.Description("Sink name; defaults to the first configured sink")),
			mcp.WithString("agent_name", mcp.Description("Agent name recorded on the change")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			resp, err := submissions.Submit(ctx, common.SubmitRequest{
				Sink:  req.GetString("sink", ""),
				Actor: agentActor(req.GetString("agent_name", "")),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("submit", resp)
		},
	)
}

// agentActor attributes one MCP mutation to the named agent.
func agentActor(name string) common.Actor {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultAgentName
	}
	return common.Actor{ActorID: name, ActorType: "agent"}
}

func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// invalidRequestToolResult wraps argument binding failures.
func invalidRequestToolResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("invalid_request: " + err.Error())
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrSubmissionInvalid):
		return mcp.NewToolResultError("submission_invalid: " + withUserMessage(err))
	case errors.Is(err, common.ErrSubmissionFailed):
		return mcp.NewToolResultError("submission_failed: " + withUserMessage(err))
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

// withUserMessage prefixes the submitter-facing message when one exists.
func withUserMessage(err error) string {
	if msg := common.UserMessage(err); msg != "" {
		return msg + " (" + err.Error() + ")"
	}
	return err.Error()
}
