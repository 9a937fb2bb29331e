package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stroymat/materials-bot/internal/models"
)

func TestPrintDispatches(t *testing.T) {
	var out bytes.Buffer
	err := printDispatches(&out, []models.DispatchRecord{{
		ID: "id-1",
		Order: models.Order{
			Number:         "42000123",
			DisplayName:    "@builder",
			Phone:          "+7 999 123-45-67",
			Material:       "песок",
			Quantity:       decimal.NewFromInt(5),
			Unit:           "м³",
			EstimatedPrice: decimal.NewFromInt(7500),
		},
		Status:     models.DispatchFailed,
		Error:      "chat not found",
		RecordedAt: time.Now(),
	}})
	require.NoError(t, err)

	text := out.String()
	for _, want := range []string{"42000123", "failed", "@builder", "песок 5 м³", "7,500₽", "chat not found"} {
		assert.Contains(t, text, want)
	}
}

func TestPrintDispatchesEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printDispatches(&out, nil))
	assert.Equal(t, "No dispatches found.\n", out.String())
}

func TestPricesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := pricesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1,500₽ за м³")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "materials-bot dev\n", out.String())
}
