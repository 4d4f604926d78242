package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"quiz-live-service/internal/app"
)

const qrSize = 256

// QRHandler renders the player join link of a live game as a PNG.
type QRHandler struct {
	registry  *app.Registry
	publicURL string
}

func NewQRHandler(registry *app.Registry, publicURL string) *QRHandler {
	return &QRHandler{registry: registry, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// JoinURL is the link encoded in the QR code for pin.
func (h *QRHandler) JoinURL(pin string) string {
	return h.publicURL + "/play?pin=" + url.QueryEscape(pin)
}

func (h *QRHandler) ServeQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pin := app.NormalizePin(ps.ByName("pin"))
	if _, ok := h.registry.Get(pin); !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	png, err := qrcode.Encode(h.JoinURL(pin), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "failed to render qr code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
