package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomtrack/internal/core"
	"roomtrack/pkg/domain"
)

type addItemRequest struct {
	RFIDTag  string `json:"rfidTag"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type moveRequest struct {
	ItemID     string `json:"itemId"`
	ToLocation string `json:"toLocation"`
}

type scanRequest struct {
	RFIDTag  string `json:"rfidTag"`
	Location string `json:"location"`
}

func (h *handler) listItems(c *gin.Context) {
	items, err := h.svc.ListItems(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

func (h *handler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	loc, err := domain.ValidateNewItem(req.RFIDTag, req.Name, req.Location)
	if err != nil {
		h.fail(c, err)
		return
	}
	item, err := h.svc.AddItem(c.Request.Context(), req.RFIDTag, req.Name, loc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *handler) findByRFID(c *gin.Context) {
	item, err := h.svc.FindItemByRFID(c.Request.Context(), c.Param("tag"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handler) listMovements(c *gin.Context) {
	movements, err := h.svc.ListMovements(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(movements))
}

func (h *handler) recordMovement(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	var item *domain.Item
	if req.ItemID != "" {
		found, err := h.svc.GetItem(ctx, req.ItemID)
		if err != nil {
			h.fail(c, err)
			return
		}
		item = &found
	}
	to, err := domain.ValidateMove(item, req.ToLocation)
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := h.svc.RecordMovement(ctx, item.ID, item.Name, item.RFIDTag, item.CurrentLocation, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.RFIDTag == "" {
		h.fail(c, domain.ValidationError{Field: "rfidTag", Err: domain.ErrEmptyRFIDTag})
		return
	}
	loc, err := domain.ParseLocation(req.Location)
	if err != nil {
		h.fail(c, domain.ValidationError{Field: "location", Err: err})
		return
	}
	result, err := h.svc.ProcessScan(c.Request.Context(), req.RFIDTag, loc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) roomInventory(c *gin.Context) {
	room, err := domain.ParseLocation(c.Param("room"))
	if err != nil {
		h.fail(c, domain.ValidationError{Field: "room", Err: err})
		return
	}
	inv, err := h.svc.RoomInventory(c.Request.Context(), room)
	if err != nil && !core.IsUnresolvedItems(err) {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *handler) initializeDemo(c *gin.Context) {
	summary, err := h.svc.InitializeDemoData(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusCreated
	if summary.AlreadyInitialized {
		status = http.StatusOK
	}
	c.JSON(status, summary)
}

func (h *handler) resetDemo(c *gin.Context) {
	summary, err := h.svc.ResetDemoData(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *handler) listExports(c *gin.Context) {
	exports, err := h.svc.ListExports(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(exports))
}

func (h *handler) createExport(c *gin.Context) {
	result, err := h.svc.ExportSnapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *handler) consistency(c *gin.Context) {
	result, err := h.svc.CheckConsistency(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"consistent": !result.HasBlocking(),
		"violations": nonNil(result.Violations),
	})
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
