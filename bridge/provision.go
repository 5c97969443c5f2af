package bridge

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sonr-io/keybridge/bridge/transport"
	"github.com/sonr-io/keybridge/rpc"
)

// Provisioner connects a facade to an engine served by a bridge.
type Provisioner struct {
	// URL is the engine websocket, e.g. ws://localhost:8090/engine.
	URL string
	// Token is sent as a bearer token when set.
	Token  string
	Dialer *websocket.Dialer
}

// Provision dials the bridge. Closing the port closes the websocket.
func (p *Provisioner) Provision(ctx context.Context) (rpc.Port, error) {
	header := http.Header{}
	if p.Token != "" {
		header.Set("Authorization", "Bearer "+p.Token)
	}
	conn, err := transport.Dial(ctx, p.Dialer, p.URL, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
