package mail

import "html/template"

// OrderUpdateData feeds OrderUpdate.
type OrderUpdateData struct {
	Name           string
	OrderID        uint
	Headline       string
	Status         string
	Total          string
	TrackingNumber string
	Note           string
}

var OrderUpdate = template.Must(template.New("order_update").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>Hi {{.Name}},</p>
<p>{{.Headline}}</p>
<table>
<tr><td>Order</td><td>#{{.OrderID}}</td></tr>
<tr><td>Status</td><td>{{.Status}}</td></tr>
<tr><td>Total</td><td>{{.Total}}</td></tr>
{{if .TrackingNumber}}<tr><td>Tracking</td><td>{{.TrackingNumber}}</td></tr>{{end}}
</table>
{{if .Note}}<p>{{.Note}}</p>{{end}}
<p>Panaya</p>
</body></html>`))
