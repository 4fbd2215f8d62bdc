package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/quadrant/internal/batch"
	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/pkg/logger"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one websocket frame
type StreamMessage struct {
	Type   string                          `json:"type"` // "result", "done", "error"
	Index  int                             `json:"index"`
	Result *contracts.ClassificationResult `json:"result,omitempty"`
	Count  int                             `json:"count,omitempty"`
	Error  string                          `json:"error,omitempty"`
}

// StreamHandler pushes results over a websocket as each symbol finishes
type StreamHandler struct {
	quadrants *QuadrantHandler
	logger    *logger.Logger
}

// NewStreamHandler creates a websocket stream handler sharing the quadrant handler's runner
func NewStreamHandler(quadrants *QuadrantHandler, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		quadrants: quadrants,
		logger:    log,
	}
}

// Serve upgrades the connection and streams results
// GET /ws/quadrants?symbols=TCS,INFY
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	margin, err := queryFloat(q.Get("margin"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'margin': "+err.Error())
		return
	}
	multiple, err := queryFloat(q.Get("multiple"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'multiple': "+err.Error())
		return
	}

	symbols, runner, msg := h.quadrants.prepare(batch.ParseSymbolList(q.Get("symbols")), margin, multiple)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	var writeErr error
	runner.Stream(r.Context(), symbols, func(i int, res contracts.ClassificationResult) {
		if writeErr != nil {
			return
		}
		writeErr = write(conn, StreamMessage{Type: "result", Index: i, Result: &res})
	})

	if writeErr != nil {
		h.logger.WithError(writeErr).Debug("WebSocket client went away")
		return
	}

	if err := write(conn, StreamMessage{Type: "done", Count: len(symbols)}); err != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func write(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
