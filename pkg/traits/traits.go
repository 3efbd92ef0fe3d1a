// Package traits parses trait full names of the form
// "DatasetName::TraitName" or "DatasetName::TraitName::CellID".
package traits

import (
	"strings"

	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/datasets"
)

// Trait is a parsed trait full name. The dataset type is inferred from
// markers in the dataset name; anything without a Geno or Publish marker is
// an mRNA probeset.
type Trait struct {
	FullName    string
	Name        string
	CellID      string
	DatasetName string
	DatasetType datasets.DatasetType
}

// Parse splits a trait full name into its parts. Names with fewer than two
// "::"-separated parts are malformed.
func Parse(fullname string) (Trait, error) {
	parts := strings.Split(fullname, "::")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Trait{}, auth.NewAuthorisationError(
			"name format error: %q", fullname)
	}

	trait := Trait{
		FullName:    fullname,
		Name:        parts[1],
		DatasetName: parts[0],
		DatasetType: datasetTypeOf(parts[0]),
	}
	if len(parts) >= 3 {
		trait.CellID = parts[2]
	}
	return trait, nil
}

// ParseAll parses a batch of trait full names, failing on the first
// malformed name.
func ParseAll(fullnames []string) ([]Trait, error) {
	traits := make([]Trait, 0, len(fullnames))
	for _, fullname := range fullnames {
		trait, err := Parse(fullname)
		if err != nil {
			return nil, err
		}
		traits = append(traits, trait)
	}
	return traits, nil
}

func datasetTypeOf(datasetName string) datasets.DatasetType {
	switch {
	case strings.Contains(datasetName, "Geno"):
		return datasets.Geno
	case strings.Contains(datasetName, "Publish"):
		return datasets.Publish
	default:
		return datasets.ProbeSet
	}
}

// DataKey is the lookup key linking a trait to resource data items, in the
// form "<category>::<dataset name>".
func (t Trait) DataKey() string {
	return t.DatasetType.Category() + "::" + t.DatasetName
}
