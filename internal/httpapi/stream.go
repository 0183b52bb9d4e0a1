package httpapi

import (
	"io"

	"github.com/gin-gonic/gin"

	"roomtrack/internal/core"
	"roomtrack/pkg/domain"
)

type roomEvent struct {
	Room    domain.Location `json:"room"`
	Items   []domain.Item   `json:"items"`
	Missing []string        `json:"missing,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (h *handler) streamItems(c *gin.Context) {
	sub, err := h.svc.SubscribeItems(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	streamSubscription(c, sub, "items", nonNil[domain.Item])
}

func (h *handler) streamMovements(c *gin.Context) {
	sub, err := h.svc.SubscribeMovements(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	streamSubscription(c, sub, "movements", nonNil[domain.Movement])
}

func (h *handler) streamRoom(c *gin.Context) {
	room, err := domain.ParseLocation(c.Param("room"))
	if err != nil {
		h.fail(c, domain.ValidationError{Field: "room", Err: err})
		return
	}
	sub, err := h.svc.SubscribeRoomInventory(c.Request.Context(), room)
	if err != nil {
		h.fail(c, err)
		return
	}
	streamSubscription(c, sub, "room", func(inv core.RoomInventory) roomEvent {
		ev := roomEvent{Room: inv.Room, Items: inv.Items, Missing: inv.Missing}
		if inv.Err != nil {
			ev.Error = inv.Err.Error()
		}
		return ev
	})
}

// streamSubscription forwards every snapshot as a server-sent event until the
// client goes away or the subscription ends.
func streamSubscription[T, E any](c *gin.Context, sub *core.Subscription[T], event string, render func(T) E) {
	defer sub.Cancel()
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	done := c.Request.Context().Done()
	c.Stream(func(io.Writer) bool {
		select {
		case v, ok := <-sub.Updates():
			if !ok {
				return false
			}
			c.SSEvent(event, render(v))
			return true
		case <-done:
			return false
		}
	})
}
