package http

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// NewRouter wires the websocket endpoints, the join QR code and the health check.
func NewRouter(ws *WSHandler, qr *QRHandler) *httprouter.Router {
	mux := httprouter.New()
	mux.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.GET("/ws/host/:quizID", ws.ServeHost)
	mux.GET("/ws/player/:pin/:nickname", ws.ServePlayer)
	mux.GET("/qr/:pin", qr.ServeQR)
	return mux
}
