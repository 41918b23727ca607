package checkin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/classpulse/backend/pkg/response"
)

const qrImageSize = 256

// QR handles GET /sessions/:id/qr (owner). Renders the session's check-in
// code as a PNG for projecting in class; scanning it fills the code field on
// the student side.
func (h *Handler) QR(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	png, err := qrcode.Encode(session.Code, qrcode.Medium, qrImageSize)
	if err != nil {
		response.Internal(c, "failed to render qr code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
