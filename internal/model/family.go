package model

import (
	"fmt"
	"strings"
)

// Family identifies an emoji library.
type Family string

const (
	// FamilyFluentUI is Microsoft's emoji library.
	FamilyFluentUI Family = "FLUENT_UI"
	// FamilyNoto is Google's "No Tofu" emoji library.
	FamilyNoto Family = "NOTO"
)

// Families lists every known family in display order.
var Families = []Family{FamilyFluentUI, FamilyNoto}

// ParseFamily resolves a family name case-insensitively.
func ParseFamily(name string) (Family, error) {
	for _, f := range Families {
		if strings.EqualFold(string(f), name) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown emoji family %q", name)
}

// Valid reports whether f is one of Families.
func (f Family) Valid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

// NormalizedName is the lowercase, underscore-separated family name used in file names.
func (f Family) NormalizedName() string {
	return strings.ToLower(strings.ReplaceAll(string(f), " ", "_"))
}

// MetadataFile is the catalog file name for the family, e.g. "fluent_ui-Metadata.json".
func (f Family) MetadataFile() string {
	return f.NormalizedName() + "-Metadata.json"
}
