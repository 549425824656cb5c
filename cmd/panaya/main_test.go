package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
)

func TestRouteListSortsByPath(t *testing.T) {
	var out bytes.Buffer
	routeListCmd.SetOut(&out)
	require.NoError(t, routeListCmd.RunE(routeListCmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Greater(t, len(lines), 10)
	assert.True(t, strings.HasPrefix(lines[0], "METHOD"))
	assert.Contains(t, out.String(), "orders.transition")

	var paths []string
	for _, l := range lines[2:] {
		paths = append(paths, strings.Fields(l)[1])
	}
	assert.IsNonDecreasing(t, paths)
}

func TestPrintReconcile(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printReconcile(&out, &services.ReconcileReport{
		Scanned: 4,
		Drifted: []services.DriftedOrder{
			{OrderID: 7, Problems: []string{"payment approved but order pending"}, Repaired: models.OrderProcessing},
		},
	}))
	assert.Contains(t, out.String(), "Scanned 4 open orders, 1 drifted.")
	assert.Contains(t, out.String(), "payment approved but order pending")
	assert.Contains(t, out.String(), string(models.OrderProcessing))
}

func TestCommandsAreRegistered(t *testing.T) {
	want := []string{
		"serve", "route:list", "migrate", "migrate:rollback", "migrate:status", "seed",
		"queue:work", "schedule:run", "orders:reconcile", "orders:export",
	}
	for _, name := range want {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}
