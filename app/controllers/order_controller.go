package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/panaya/app/lifecycle"
	"github.com/shashiranjanraj/panaya/app/listeners"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
	"github.com/shashiranjanraj/panaya/pkg/export"
	"github.com/shashiranjanraj/panaya/pkg/sse"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

// keepAlive is how often an idle event stream gets a comment line.
var keepAlive = 15 * time.Second

type OrderController struct {
	orders    *services.OrderService
	checkout  *services.CheckoutService
	lifecycle *services.LifecycleService
	export    *services.ExportService
	broker    *sse.Broker
}

// NewOrderController wires the order routes. broker may be nil, in which
// case the event stream answers 503.
func NewOrderController(s *services.Services, broker *sse.Broker) *OrderController {
	return &OrderController{
		orders:    s.Orders,
		checkout:  s.Checkout,
		lifecycle: s.Lifecycle,
		export:    s.Export,
		broker:    broker,
	}
}

// placed answers a checkout: 201 for a new order, 200 for a replay.
func placed(c *ctx.Context, res *services.CheckoutResult) {
	if res.Replayed {
		c.SetHeader(replayedHeader, "true")
		c.Success(res.Order)
		return
	}
	c.Created(res.Order)
}

// Index lists orders newest first. Admins may narrow with ?userId=.
func (oc *OrderController) Index(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	orders, page, err := oc.orders.List(c.Context(), a, c.QueryUint("userId"), c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(orders, page)
}

// Store checks out the posted lines. Retries carrying the same
// Idempotency-Key get the first order back.
func (oc *OrderController) Store(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in services.CheckoutInput
	if !c.BindJSON(&in) {
		return
	}
	res, err := oc.checkout.Checkout(c.Context(), a, in, c.Header(idempotencyHeader))
	if err != nil {
		c.Fail(err)
		return
	}
	placed(c, res)
}

func (oc *OrderController) Show(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := oc.orders.Get(c.Context(), a, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(o)
}

// Update accepts {"status": ...} and maps it onto a lifecycle action.
func (oc *OrderController) Update(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.OrderUpdate
	if !c.BindJSON(&in) {
		return
	}
	o, err := oc.orders.Update(c.Context(), a, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(o)
}

func (oc *OrderController) Destroy(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := oc.orders.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Order deleted")
}

// Transition runs one lifecycle action against the order.
func (oc *OrderController) Transition(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.TransitionInput
	if !c.BindJSON(&in) {
		return
	}
	o, err := oc.lifecycle.Transition(c.Context(), a, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(o)
}

// Events streams the order's lifecycle events as server-sent events. The
// first event is the current state.
func (oc *OrderController) Events(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if oc.broker == nil {
		c.Error(http.StatusServiceUnavailable, "event stream is disabled")
		return
	}
	o, err := oc.orders.Get(c.Context(), a, id)
	if err != nil {
		c.Fail(err)
		return
	}

	events, cancel := oc.broker.Subscribe(listeners.OrderTopic(o.ID))
	defer cancel()

	stream := sse.New(c.W, c.R)
	if stream == nil {
		return
	}
	if err := stream.Send("snapshot", stateSnapshot{OrderID: o.ID, State: services.OrderStatuses(o)}); err != nil {
		return
	}

	tick := time.NewTicker(keepAlive)
	defer tick.Stop()
	for {
		select {
		case <-c.Context().Done():
			return
		case <-tick.C:
			stream.Comment("keep-alive")
		case ev := <-events:
			if err := stream.Send(ev.Name, ev.Data); err != nil {
				return
			}
		}
		if stream.IsClosed() {
			return
		}
	}
}

type stateSnapshot struct {
	OrderID uint              `json:"order_id"`
	State   services.Statuses `json:"state"`
}

// Export downloads the order report. ?format=csv|xlsx, optional ?status=
// and ?userId=.
func (oc *OrderController) Export(c *ctx.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.Error(http.StatusUnprocessableEntity, err.Error())
		return
	}
	f := services.ExportFilter{UserID: c.QueryUint("userId")}
	if s := c.Query("status"); s != "" {
		if f.Status, err = lifecycle.ParseOrderStatus(s); err != nil {
			c.Fail(err)
			return
		}
	}

	var buf bytes.Buffer
	if err := oc.export.Write(c.Context(), &buf, format, f); err != nil {
		c.Fail(err)
		return
	}
	c.SetHeader("Content-Type", format.ContentType())
	c.SetHeader("Content-Disposition", fmt.Sprintf(`attachment; filename="orders-%s.%s"`, time.Now().Format("20060102"), format))
	c.Status(http.StatusOK)
	_, _ = c.W.Write(buf.Bytes())
}

type OrderItemController struct {
	orders *services.OrderService
}

func NewOrderItemController(s *services.Services) *OrderItemController {
	return &OrderItemController{orders: s.Orders}
}

// Index lists order lines, optionally for ?order_id=.
func (ic *OrderItemController) Index(c *ctx.Context) {
	items, page, err := ic.orders.Items(c.Context(), c.QueryUint("order_id"), c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}
