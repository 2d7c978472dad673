package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"cosmicds/internal/identity"
	"cosmicds/internal/syncer"
)

// Server exposes the sync operations of one session as MCP tools. The user is
// fixed when the server starts, as a UI session is bound to one login.
type Server struct {
	sync    *syncer.Service
	session string
	user    *identity.UserInfo
	mcp     *sdk.Server
}

func NewServer(sync *syncer.Service, sessionID string, user *identity.UserInfo, version string) *Server {
	s := &Server{
		sync:    sync,
		session: sessionID,
		user:    user,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "cosmicds",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
