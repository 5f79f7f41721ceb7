package roomhandler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"buzzin/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const qrSize = 320 // mobile-friendly size

// Rooms is the read side of the room registry.
type Rooms interface {
	Get(code string) (*game.Room, error)
	Len() int
}

type Handler struct {
	rooms     Rooms
	publicURL string
	now       func() time.Time
}

func New(rooms Rooms, publicURL string) *Handler {
	return &Handler{rooms: rooms, publicURL: strings.TrimRight(publicURL, "/"), now: time.Now}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.health)
	r.GET("/rooms/:code", h.snapshot)
	r.GET("/rooms/:code/qr", h.qr)
}

// @Summary		Liveness check
// @Description	Reports server time in unix milliseconds and the number of live rooms.
// @Tags			Health
// @Success		200	{object}	HealthResponse
// @Router			/health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{OK: true, Time: h.now().UnixMilli(), Rooms: h.rooms.Len()})
}

// @Summary		Get room snapshot
// @Description	Returns the public state of a live room. Connection ids and the host token are never included.
// @Tags			Rooms
// @Param			code	path		string	true	"Room code"	default(4821)
// @Success		200		{object}	game.Snapshot
// @Failure		404		{object}	ErrorResponse
// @Router			/rooms/{code} [get]
func (h *Handler) snapshot(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, room.Snapshot())
}

// @Summary		Join QR code
// @Description	Renders the join link of a live room as a PNG.
// @Tags			Rooms
// @Produce		png
// @Param			code	path		string	true	"Room code"	default(4821)
// @Success		200		{file}		binary
// @Failure		404		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/rooms/{code}/qr [get]
func (h *Handler) qr(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	png, err := qrcode.Encode(h.JoinURL(room.Code()), qrcode.Medium, qrSize)
	if err != nil {
		zap.L().Error("http.qr", zap.String("code", room.Code()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "qr generation failed"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// JoinURL is the link players open to join code.
func (h *Handler) JoinURL(code string) string {
	return h.publicURL + "/?room=" + url.QueryEscape(code)
}

func (h *Handler) room(c *gin.Context) (*game.Room, bool) {
	room, err := h.rooms.Get(c.Param("code"))
	if errors.Is(err, game.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return room, true
}
