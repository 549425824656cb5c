package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
	"github.com/shashiranjanraj/panaya/pkg/ws"
)

type ShipmentController struct {
	shipments *services.ShipmentService
	hub       *ws.Hub
}

// NewShipmentController serves the shipment routes. hub backs the admin
// live feed and may be nil.
func NewShipmentController(s *services.Services, hub *ws.Hub) *ShipmentController {
	return &ShipmentController{shipments: s.Shipments, hub: hub}
}

func (sc *ShipmentController) Index(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, page, err := sc.shipments.List(c.Context(), a, c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}

func (sc *ShipmentController) Show(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sh, err := sc.shipments.Get(c.Context(), a, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(sh)
}

func (sc *ShipmentController) Store(c *ctx.Context) {
	var in services.ShipmentInput
	if !c.BindJSON(&in) {
		return
	}
	sh, err := sc.shipments.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(sh)
}

// Update moves the shipment through update_shipment.
func (sc *ShipmentController) Update(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.ShipmentUpdate
	if !c.BindJSON(&in) {
		return
	}
	sh, err := sc.shipments.Update(c.Context(), a, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(sh)
}

func (sc *ShipmentController) Destroy(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := sc.shipments.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Shipment deleted")
}

// AddEvent appends to the shipment log without moving the shipment.
func (sc *ShipmentController) AddEvent(c *ctx.Context) {
	var in services.ShipmentEventInput
	if !c.BindJSON(&in) {
		return
	}
	ev, err := sc.shipments.AddEvent(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(ev)
}

// Feed upgrades to the websocket that relays every order event.
func (sc *ShipmentController) Feed(w http.ResponseWriter, r *http.Request) {
	if sc.hub == nil {
		http.Error(w, "live feed is disabled", http.StatusServiceUnavailable)
		return
	}
	sc.hub.Serve(w, r)
}
