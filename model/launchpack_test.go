package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUppercasesTicker(t *testing.T) {
	lp := LaunchPack{Brand: Brand{Name: " King Coin ", Ticker: " king "}}
	lp.Normalize()
	assert.Equal(t, "KING", lp.Brand.Ticker)
	assert.Equal(t, "King Coin", lp.Brand.Name)
}

func TestValidateLaunchPack(t *testing.T) {
	lp := LaunchPack{Brand: Brand{Name: "King Coin", Ticker: "KING"}}
	assert.NoError(t, lp.ValidateLaunchPack())

	missingName := LaunchPack{Brand: Brand{Ticker: "KING"}}
	assert.Error(t, missingName.ValidateLaunchPack())

	longTicker := LaunchPack{Brand: Brand{Name: "King Coin", Ticker: "WAYTOOLONGTICKER"}}
	assert.Error(t, longTicker.ValidateLaunchPack())

	badURL := LaunchPack{
		Brand: Brand{Name: "King Coin", Ticker: "KING"},
		Links: Links{Website: "not a url"},
	}
	assert.Error(t, badURL.ValidateLaunchPack())
}

func TestDeepMergePreservesSiblings(t *testing.T) {
	base := map[string]interface{}{
		"brand": map[string]interface{}{
			"name":   "King Coin",
			"ticker": "KING",
		},
		"links": map[string]interface{}{"website": "https://king.example"},
	}
	patch := map[string]interface{}{
		"brand": map[string]interface{}{"name": "King Coin v2"},
	}

	merged := DeepMerge(base, patch)

	brand := merged["brand"].(map[string]interface{})
	assert.Equal(t, "King Coin v2", brand["name"])
	assert.Equal(t, "KING", brand["ticker"], "sibling not mentioned in patch must survive")
	assert.Equal(t, base["links"], merged["links"])

	// base must not be mutated
	assert.Equal(t, "King Coin", base["brand"].(map[string]interface{})["name"])
}

func TestDeepMergeArraysReplaceWholesale(t *testing.T) {
	base := map[string]interface{}{
		"thread": []interface{}{"a", "b", "c"},
	}
	patch := map[string]interface{}{
		"thread": []interface{}{"z"},
	}

	merged := DeepMerge(base, patch)
	assert.Equal(t, []interface{}{"z"}, merged["thread"])
}

func TestDeepMergeNullClearsKey(t *testing.T) {
	base := map[string]interface{}{"a": "x", "b": "y"}
	patch := map[string]interface{}{"a": nil}

	merged := DeepMerge(base, patch)
	_, ok := merged["a"]
	assert.False(t, ok)
	assert.Equal(t, "y", merged["b"])
}

func TestDocumentRoundTrip(t *testing.T) {
	lp := &LaunchPack{
		LaunchPackID: "lp_123",
		Brand:        Brand{Name: "King Coin", Ticker: "KING"},
		Launch:       LaunchState{Status: LaunchStatusDraft},
		Ops: OpsState{
			Checklist: map[string]bool{ChecklistTelegramReady: true},
			Telegram:  PublishState{Status: PublishStatusIdle},
			X:         PublishState{Status: PublishStatusIdle},
		},
	}

	doc, err := ToDocument(lp)
	assert.NoError(t, err)
	back, err := FromDocument(doc)
	assert.NoError(t, err)
	assert.Equal(t, lp.LaunchPackID, back.LaunchPackID)
	assert.Equal(t, lp.Brand, back.Brand)
	assert.Equal(t, lp.Ops.Checklist, back.Ops.Checklist)
}

func TestNormalizeSchedule(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	entries := []ScheduleEntry{
		{When: time.Date(2024, 5, 1, 15, 30, 45, 999000000, loc), Text: "gm"},
	}

	normalized := NormalizeSchedule(entries)
	assert.Len(t, normalized, 1)
	assert.Equal(t, time.UTC, normalized[0].When.Location())
	assert.Equal(t, time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC), normalized[0].When)

	assert.Nil(t, NormalizeSchedule(nil))
}
