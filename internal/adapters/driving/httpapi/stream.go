package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/logger"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// handleStatusStream upgrades to a websocket and pushes the document's status
// record each time it changes. The server closes the stream once the status
// is terminal.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("doc_id")
	ctx := r.Context()

	doc, err := s.ports.Ingestion.Status(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("upgrading status stream for %s: %v", id, err)
		return
	}
	defer conn.Close()

	// Drain client frames so close and ping control messages are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last domain.Document
	sent := false
	for {
		if !sent || changed(last, *doc) {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(doc); err != nil {
				logger.Debug("status stream for %s closed: %v", id, err)
				return
			}
			last, sent = *doc, true
		}

		if doc.Status.IsTerminal() {
			closeStream(conn, websocket.CloseNormalClosure, doc.Status.String())
			return
		}

		select {
		case <-gone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := s.ports.Ingestion.Status(ctx, id)
		if err != nil {
			closeStream(conn, websocket.CloseInternalServerErr, err.Error())
			return
		}
		doc = next
	}
}

func changed(prev, next domain.Document) bool {
	return prev.Status != next.Status ||
		prev.Progress != next.Progress ||
		prev.Message != next.Message ||
		prev.Error != next.Error
}

// maxCloseReason keeps close frames within the 125 byte control frame limit.
const maxCloseReason = 123

func closeStream(conn *websocket.Conn, code int, reason string) {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
