// Package blocks holds the static assessment block definitions and their item
// catalogs. This is immutable reference data, not runtime state; editing the
// battery means editing this file and shipping a new build.
package blocks

import (
	dErrors "talentgate/pkg/domain-errors"
)

// Block is a named, ordered group of assessment items measuring a fixed set of
// constructs.
type Block struct {
	Index            int
	Name             string
	Constructs       []string
	EstimatedMinutes int
}

// Item is a single assessment item belonging to a block.
type Item struct {
	ID   string
	Type string
}

// Item types accepted by the response ledger.
const (
	ItemTypeMultipleChoice = "multiple_choice"
	ItemTypeOpenText       = "open_text"
	ItemTypeLikert         = "likert"
	ItemTypeCoding         = "coding"
)

var battery = []Block{
	{Index: 0, Name: "Cognitive Reasoning", Constructs: []string{"fluid_reasoning", "working_memory"}, EstimatedMinutes: 25},
	{Index: 1, Name: "Technical Problem Solving", Constructs: []string{"domain_knowledge", "debugging"}, EstimatedMinutes: 35},
	{Index: 2, Name: "Behavioral Judgment", Constructs: []string{"situational_judgment", "integrity"}, EstimatedMinutes: 20},
	{Index: 3, Name: "Work Style", Constructs: []string{"conscientiousness", "collaboration"}, EstimatedMinutes: 10},
}

var catalog = map[int][]Item{
	0: {
		{ID: "cog-01", Type: ItemTypeMultipleChoice},
		{ID: "cog-02", Type: ItemTypeMultipleChoice},
		{ID: "cog-03", Type: ItemTypeMultipleChoice},
		{ID: "cog-04", Type: ItemTypeMultipleChoice},
		{ID: "cog-05", Type: ItemTypeMultipleChoice},
		{ID: "cog-06", Type: ItemTypeMultipleChoice},
	},
	1: {
		{ID: "tech-01", Type: ItemTypeMultipleChoice},
		{ID: "tech-02", Type: ItemTypeCoding},
		{ID: "tech-03", Type: ItemTypeCoding},
		{ID: "tech-04", Type: ItemTypeOpenText},
	},
	2: {
		{ID: "beh-01", Type: ItemTypeMultipleChoice},
		{ID: "beh-02", Type: ItemTypeMultipleChoice},
		{ID: "beh-03", Type: ItemTypeOpenText},
		{ID: "beh-04", Type: ItemTypeMultipleChoice},
	},
	3: {
		{ID: "style-01", Type: ItemTypeLikert},
		{ID: "style-02", Type: ItemTypeLikert},
		{ID: "style-03", Type: ItemTypeLikert},
		{ID: "style-04", Type: ItemTypeLikert},
		{ID: "style-05", Type: ItemTypeLikert},
	},
}

// All returns the ordered block definitions.
func All() []Block {
	out := make([]Block, len(battery))
	copy(out, battery)
	return out
}

// ByIndex returns the block definition for the given index.
func ByIndex(index int) (Block, error) {
	if index < 0 || index >= len(battery) {
		return Block{}, dErrors.New(dErrors.CodeNotFound, "unknown block index")
	}
	return battery[index], nil
}

// Items returns the catalog items for a block in their canonical order. The
// deterministic shuffle is applied per candidate on top of this order, so the
// slice returned here must be stable across calls.
func Items(blockIndex int) ([]Item, error) {
	items, ok := catalog[blockIndex]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown block index")
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

// ItemType looks up the declared type of an item anywhere in the battery.
// Returns "" when the item is unknown.
func ItemType(itemID string) string {
	for _, items := range catalog {
		for _, item := range items {
			if item.ID == itemID {
				return item.Type
			}
		}
	}
	return ""
}
