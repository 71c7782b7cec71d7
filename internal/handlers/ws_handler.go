package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/evn/tracker_backendl/internal/services/live"
)

type WSHandler struct {
	hub      *live.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *live.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the connection and subscribes the dashboard to the
// live location feed of the org given by ?org=; no org means all orgs.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	client := &live.Client{
		Conn: conn,
		Send: make(chan []byte, 64),
		Org:  r.URL.Query().Get("org"),
	}
	h.hub.Register(client)

	go h.hub.WritePump(client)
	go h.hub.ReadPump(client)
}
