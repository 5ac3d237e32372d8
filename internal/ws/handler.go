// Package ws adapts WebSocket connections to the room actor: it frames
// outbound broadcasts from the client's outbox and decodes inbound text
// frames into protocol variants.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/croissant676/SpyfallServer/internal/metrics"
	"github.com/croissant676/SpyfallServer/internal/protocol"
	"github.com/croissant676/SpyfallServer/internal/room"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

func Handler(rm *room.Room, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			log.Warnw("websocket accept failed", "err", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		metrics.ConnectionsActive.Inc()
		defer metrics.ConnectionsActive.Dec()

		c := room.NewClient(uuid.NewString())
		defer func() { rm.Inbox() <- room.Disconnect{Client: c} }()

		// Writer goroutine: drains the outbox the room pushes frames into.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case frame := <-c.Outbox:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, frame)
					cancel()
				}
			}
		}()

		// Clients wait for this before claiming a name.
		_ = conn.Write(r.Context(), websocket.MessageText, protocol.Encode(protocol.ServerVerification{}))

		// Reader loop. No inactivity timeout: a lobby can idle for as long
		// as it likes.
		for {
			typ, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Disconnect is posted by the defer either way.
				return
			}
			if typ != websocket.MessageText {
				log.Warnw("received non-text frame", "client", c.ID)
				continue
			}

			in, err := protocol.Decode(data)
			if err != nil {
				log.Warnw("received invalid frame, skipping", "client", c.ID, "err", err, "raw", string(data))
				continue
			}

			rm.Inbox() <- room.FromClient{Client: c, Data: in}
		}
	}
}
