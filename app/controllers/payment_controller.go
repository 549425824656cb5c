package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/bind"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
)

// proofField is the multipart field carrying the proof image.
const proofField = "proof"

type PaymentController struct {
	payments *services.PaymentService
	maxProof int64
}

// NewPaymentController caps proof uploads at maxProof bytes.
func NewPaymentController(s *services.Services, maxProof int64) *PaymentController {
	return &PaymentController{payments: s.Payments, maxProof: maxProof}
}

func (pc *PaymentController) Index(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, page, err := pc.payments.List(c.Context(), a, c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}

func (pc *PaymentController) Show(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := pc.payments.Get(c.Context(), a, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

// Store opens a pending payment for an order that lacks one.
func (pc *PaymentController) Store(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in services.PaymentInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.payments.Create(c.Context(), a, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(p)
}

func (pc *PaymentController) Update(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.PaymentUpdate
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.payments.Update(c.Context(), a, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (pc *PaymentController) Destroy(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := pc.payments.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Payment deleted")
}

// UploadProof takes a multipart "proof" image and submits it for review.
func (pc *PaymentController) UploadProof(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := bind.File(c.R, proofField, pc.maxProof)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, bind.ErrTooLarge) {
			msg = "The proof may not be larger than " + strconv.FormatInt(pc.maxProof>>20, 10) + " MB."
		}
		c.ValidationError(map[string]string{proofField: msg})
		return
	}
	p, err := pc.payments.UploadProof(c.Context(), a, id, data)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

// Proof serves the stored image.
func (pc *PaymentController) Proof(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, contentType, err := pc.payments.Proof(c.Context(), a, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.SetHeader("Content-Type", contentType)
	c.SetHeader("Content-Length", strconv.Itoa(len(data)))
	c.SetHeader("Cache-Control", "private, no-store")
	c.Status(http.StatusOK)
	_, _ = c.W.Write(data)
}
