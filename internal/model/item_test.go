package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceAndCriticalAlert(t *testing.T) {
	it := Item{Code: "S001", Entry: 50, Exit: 10, MinStock: 15}
	assert.Equal(t, 40, it.Balance())
	assert.False(t, it.CriticalAlert())

	it.Exit += 30
	assert.Equal(t, 10, it.Balance())
	assert.True(t, it.CriticalAlert())
}

func TestBalanceNotClamped(t *testing.T) {
	assert.Equal(t, -5, Balance(3, 8))
	assert.True(t, CriticalAlert(3, 8, 0), "negative balance is critical")
}

func TestCriticalAlertMonotonicInMinStock(t *testing.T) {
	for entry := 0; entry <= 20; entry += 5 {
		for exit := 0; exit <= 20; exit += 5 {
			prev := false
			for minStock := -5; minStock <= 30; minStock++ {
				got := CriticalAlert(entry, exit, minStock)
				require.False(t, prev && !got,
					"raising minStock to %d cleared the alert (entry=%d exit=%d)", minStock, entry, exit)
				prev = got
			}
		}
	}
}

func TestItemInputFillDefaults(t *testing.T) {
	var it Item
	ItemInput{Code: "s001", Description: "saída de emergência"}.Fill(&it)

	assert.Equal(t, "S001", it.Code)
	assert.Equal(t, "SAÍDA DE EMERGÊNCIA", it.Description)
	assert.Equal(t, DefaultClassification, it.Classification)
	assert.Equal(t, DefaultFunction, it.Function)
	assert.Equal(t, DefaultColor, it.Color)
	assert.Equal(t, DefaultShape, it.Shape)
	assert.Equal(t, DefaultSize, it.Size)
	assert.Equal(t, DefaultExtras, it.Extras)
	assert.Equal(t, 0, it.Entry)
	assert.Equal(t, 0, it.Exit)
	assert.Equal(t, 5, it.MinStock)
	assert.Equal(t, 100, it.MaxStock)
}

func TestItemInputFillLenientNumbers(t *testing.T) {
	var it Item
	ItemInput{
		Code:     "X1",
		Entry:    "abc",
		Exit:     " 7 ",
		MinStock: "0",
		MaxStock: "-3",
	}.Fill(&it)

	assert.Equal(t, 0, it.Entry, "non-numeric entry falls back")
	assert.Equal(t, 7, it.Exit)
	assert.Equal(t, 0, it.MinStock, "explicit zero is kept")
	assert.Equal(t, -3, it.MaxStock, "negative values are accepted as-is")
}

func TestNumericFieldJSON(t *testing.T) {
	var in ItemInput
	data := []byte(`{"code":"a","entry":12,"exit":"4","min_stock":null}`)
	require.NoError(t, json.Unmarshal(data, &in))

	assert.Equal(t, 12, in.Entry.Int(-1))
	assert.Equal(t, 4, in.Exit.Int(-1))
	assert.Equal(t, DefaultMinStock, in.MinStock.Int(DefaultMinStock), "null uses the default")
}

func TestItemJSONIncludesDerivedFields(t *testing.T) {
	data, err := json.Marshal(Item{ID: "1", Entry: 20, Exit: 5, MinStock: 10})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(15), got["balance"])
	assert.Equal(t, false, got["critical_alert"])
	assert.Equal(t, "1", got["id"])
}
