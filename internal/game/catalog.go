package game

import "strings"

// Kind is one entry of the fixed building catalog.
type Kind struct {
	Name    string
	BaseCPS float64 // production of one unit with no upgrades
}

// Catalog lists every building in shop order.
var Catalog = []Kind{
	{"Cursor", 0.1},
	{"Grandma", 0.5},
	{"Farm", 4},
	{"Mine", 10},
	{"Factory", 40},
	{"Bank", 100},
	{"Temple", 400},
	{"Wizard tower", 6_666},
	{"Shipment", 100_000},
	{"Alchemy lab", 400_000},
	{"Portal", 1_666_666},
	{"Time machine", 98_888_888},
	{"Antimatter condenser", 999_999_999},
	{"Prism", 999_999_999_999},
	{"Cortex baker", 99_999_999_999_999},
	{"Idleverse", 99_999_999_999_999_999},
	{"Fractal engine", 999_999_999_999_999_999_999},
}

// Lookup finds a catalog entry by name, ignoring case.
func Lookup(name string) (Kind, int, bool) {
	for i, k := range Catalog {
		if strings.EqualFold(k.Name, name) {
			return k, i, true
		}
	}
	return Kind{}, -1, false
}

// BaseCPS returns the base production of name, or 0 when it is not in the catalog.
func BaseCPS(name string) float64 {
	k, _, _ := Lookup(name)
	return k.BaseCPS
}
