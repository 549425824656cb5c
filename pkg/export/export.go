// Package export renders order reports as CSV or XLSX.
package export

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", fmt.Errorf("export: unsupported format %q", s)
}

func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// OrderRow is one line of the order report.
type OrderRow struct {
	OrderID        uint    `csv:"order_id"`
	OrderDate      string  `csv:"order_date"`
	Customer       string  `csv:"customer"`
	Email          string  `csv:"email"`
	Status         string  `csv:"status"`
	PaymentStatus  string  `csv:"payment_status"`
	ShipmentStatus string  `csv:"shipment_status"`
	TrackingNumber string  `csv:"tracking_number"`
	Items          int     `csv:"items"`
	Subtotal       float64 `csv:"subtotal"`
	ShippingFee    float64 `csv:"shipping_fee"`
	Total          float64 `csv:"total"`
}

const sheet = "Orders"

// Write renders rows in format f.
func Write(w io.Writer, f Format, rows []OrderRow) error {
	if f == XLSX {
		return writeXLSX(w, rows)
	}
	if rows == nil {
		rows = []OrderRow{}
	}
	return gocsv.Marshal(rows, w)
}

// writeXLSX uses the csv tags as the header row.
func writeXLSX(w io.Writer, rows []OrderRow) error {
	x := excelize.NewFile()
	x.SetSheetName("Sheet1", sheet)

	t := reflect.TypeOf(OrderRow{})
	for c := 0; c < t.NumField(); c++ {
		x.SetCellValue(sheet, cell(c, 1), t.Field(c).Tag.Get("csv"))
	}
	for r, row := range rows {
		v := reflect.ValueOf(row)
		for c := 0; c < v.NumField(); c++ {
			x.SetCellValue(sheet, cell(c, r+2), v.Field(c).Interface())
		}
	}
	x.SetColWidth(sheet, "B", "H", 20)
	return x.Write(w)
}

func cell(col, row int) string {
	return fmt.Sprintf("%s%d", excelize.ToAlphaString(col), row)
}
