package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/buckshotvr/backend/game/lobby"
	"github.com/buckshotvr/backend/leaderboard"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Buckshot Roulette VR Backend",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Buckshot Roulette VR Backend - MCP Interface

This is a thin client that proxies all requests to the REST API server.

AVAILABLE TOOLS:
- create_lobby: Create a new game lobby for a host
- join_lobby: Add a player to an existing lobby
- start_game: Start the game in a lobby (snapshots current players)
- get_lobby: Get a lobby's current state
- list_lobbies: List all lobbies
- leaderboard: Show the current top scores

Realtime game and chat traffic flows over the /ws/game and /ws/chat
WebSocket endpoints, not through MCP.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_lobby",
		Description: "Create a new game lobby with the given host and capacity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"host_id": map[string]interface{}{
					"type":        "string",
					"description": "User ID of the lobby host",
				},
				"max_players": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of players (must be positive)",
				},
			},
			Required: []string{"host_id", "max_players"},
		},
	}, c.handleCreateLobby)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_lobby",
		Description: "Add a player to an existing lobby",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": map[string]interface{}{
					"type":        "string",
					"description": "Lobby to join",
				},
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User ID of the joining player",
				},
			},
			Required: []string{"lobby_id", "user_id"},
		},
	}, c.handleJoinLobby)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start the game in a lobby, snapshotting its current players",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": map[string]interface{}{
					"type":        "string",
					"description": "Lobby to start",
				},
			},
			Required: []string{"lobby_id"},
		},
	}, c.handleStartGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_lobby",
		Description: "Get the current state of a lobby",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": map[string]interface{}{
					"type":        "string",
					"description": "Lobby to retrieve",
				},
			},
			Required: []string{"lobby_id"},
		},
	}, c.handleGetLobby)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_lobbies",
		Description: "List all lobbies",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLobbies)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Show the current top scores",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of entries to return",
				},
			},
		},
	}, c.handleLeaderboard)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleCreateLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	hostID, _ := args["host_id"].(string)
	maxPlayers, _ := args["max_players"].(float64)

	body := map[string]interface{}{
		"host_id":     hostID,
		"max_players": int(maxPlayers),
	}

	var lob lobby.Lobby
	err := c.apiCall("POST", "/game/lobby/create", body, &lob)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created lobby %s\nHost: %s\nCapacity: %d players\n",
		lob.ID, lob.HostID, lob.MaxPlayers)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	lobbyID, _ := args["lobby_id"].(string)
	userID, _ := args["user_id"].(string)

	var lob lobby.Lobby
	err := c.apiCall("POST", fmt.Sprintf("/game/lobby/%s/join?user_id=%s", lobbyID, userID), nil, &lob)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLobby(&lob)), nil
}

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	lobbyID, _ := args["lobby_id"].(string)

	var resp struct {
		Status  string   `json:"status"`
		Players []string `json:"players"`
	}
	err := c.apiCall("POST", fmt.Sprintf("/game/lobby/%s/start", lobbyID), nil, &resp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Game %s in lobby %s\nPlayers: %s\n",
		resp.Status, lobbyID, strings.Join(resp.Players, ", "))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	lobbyID, _ := args["lobby_id"].(string)

	var lob lobby.Lobby
	err := c.apiCall("GET", fmt.Sprintf("/game/lobby/%s", lobbyID), nil, &lob)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLobby(&lob)), nil
}

func (c *Client) handleListLobbies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int           `json:"count"`
		Lobbies []lobby.Lobby `json:"lobbies"`
	}

	err := c.apiCall("GET", "/game/lobbies", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Lobbies (%d):\n\n", response.Count)
	for _, lob := range response.Lobbies {
		result += fmt.Sprintf("- %s (host %s, %d/%d players)\n",
			lob.ID, lob.HostID, len(lob.Players), lob.MaxPlayers)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/leaderboard"
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if limit, ok := args["limit"].(float64); ok && limit > 0 {
			path = fmt.Sprintf("/leaderboard?limit=%d", int(limit))
		}
	}

	var entries []leaderboard.Entry
	err := c.apiCall("GET", path, nil, &entries)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString("Leaderboard:\n\n")
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("%d. %s - %d\n", i+1, e.Username, e.Score))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// formatLobby renders a lobby snapshot for tool output.
func formatLobby(lob *lobby.Lobby) string {
	return fmt.Sprintf("Lobby %s\nHost: %s\nPlayers (%d/%d): %s\n",
		lob.ID, lob.HostID, len(lob.Players), lob.MaxPlayers,
		strings.Join(lob.Players, ", "))
}
