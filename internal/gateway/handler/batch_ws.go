package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/service/analyses"
)

const (
	batchWSWriteWait = 10 * time.Second
	batchWSPongWait  = 60 * time.Second
	batchWSPingEvery = (batchWSPongWait * 9) / 10
)

var batchWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type batchWSOutbound struct {
	Type       string          `json:"type"`
	Index      *int            `json:"index,omitempty"`
	URL        string          `json:"url,omitempty"`
	OK         *bool           `json:"ok,omitempty"`
	Error      string          `json:"error,omitempty"`
	Analysis   *store.Analysis `json:"analysis,omitempty"`
	Successful *int            `json:"successful,omitempty"`
	Failed     *int            `json:"failed,omitempty"`
	Message    string          `json:"message,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// BatchWS runs a batch analysis over a websocket. The client sends one
// {"urls": [...]} message and receives a progress event per URL followed by
// a done event. Closing the socket cancels the URLs not yet analyzed.
func (h *Handler) BatchWS(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	conn, err := batchWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(batchWSPongWait)); err != nil {
		h.log.Warn("batch ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(batchWSPongWait))
	})

	writeCh := make(chan batchWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(batchWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out, ok := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(batchWSWriteWait)); err != nil {
					return
				}
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(batchWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
	finish := func() {
		close(writeCh)
		<-writerDone
	}

	var req batchRequest
	if err := conn.ReadJSON(&req); err != nil {
		pushBatchWS(writeCh, batchWSOutbound{Type: "error", Message: msgInvalidRequest})
		finish()
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		pushBatchWS(writeCh, batchWSOutbound{Type: "error", Message: validationMessage(err)})
		finish()
		return
	}

	// Keep reading so pongs and the client's close frame are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	out, err := h.analyses.AnalyzeBatch(ctx, uid, req.URLs, func(ev analyses.BatchEvent) {
		msg := batchWSOutbound{Type: "progress", Index: ptr(ev.Index), URL: ev.URL, OK: ptr(ev.Err == nil), Analysis: ev.Analysis}
		if ev.Err != nil {
			_, msg.Error = describe(ev.Err)
		}
		pushBatchWS(writeCh, msg)
	})
	if err != nil {
		_, msg := describe(err)
		pushBatchWS(writeCh, batchWSOutbound{Type: "error", Message: msg})
		finish()
		return
	}
	pushBatchWS(writeCh, batchWSOutbound{Type: "done", Successful: ptr(out.Successful), Failed: ptr(out.Failed)})
	finish()
}

func pushBatchWS(writeCh chan batchWSOutbound, out batchWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
