package server

import (
	"time"

	"github.com/exgaso/armory-http/progress"
)

type Client struct {
	IP          string
	Host        string
	UserAgent   string
	ConnectedAt time.Time
}

// Conn is the tracked view of one in-flight transfer. It lives exactly as
// long as the handler serving it; nothing is shared across transfers.
type Conn struct {
	ID        string
	Client    *Client
	Filename  string
	Direction progress.Direction
	TotalSize int64 // progress.UnknownTotal when not known up front
	TotalSent int64
	CurSpeed  int64
	UpdatedAt time.Time
}

type ServerState struct {
	Dir   string
	Addr  *string
	Conns map[string]*Conn
}
