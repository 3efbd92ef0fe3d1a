package datasets

import "fmt"

// DatasetType is the closed three-way classification of legacy datasets.
// Keeping it an enum with an exhaustive Partition fold means a new type tag
// cannot slip through a string branch unnoticed.
type DatasetType int

const (
	ProbeSet DatasetType = iota
	Geno
	Publish
)

// Legacy store type tags.
const (
	legacyTagProbeSet = "dataset-probeset"
	legacyTagGeno     = "dataset-geno"
	legacyTagPublish  = "dataset-publish"
)

// AllTypes lists every dataset type, in partition order.
func AllTypes() []DatasetType {
	return []DatasetType{ProbeSet, Geno, Publish}
}

// ParseLegacyTag maps a legacy store type tag onto the enum. Unknown tags
// are reported so records never silently disappear from a partition.
func ParseLegacyTag(tag string) (DatasetType, error) {
	switch tag {
	case legacyTagProbeSet:
		return ProbeSet, nil
	case legacyTagGeno:
		return Geno, nil
	case legacyTagPublish:
		return Publish, nil
	default:
		return 0, fmt.Errorf("unknown legacy dataset type tag %q", tag)
	}
}

// String returns the short form used inside the trait naming scheme.
func (t DatasetType) String() string {
	switch t {
	case ProbeSet:
		return "ProbeSet"
	case Geno:
		return "Geno"
	case Publish:
		return "Publish"
	}
	return fmt.Sprintf("DatasetType(%d)", int(t))
}

// LongForm returns the canonical client-facing label.
func (t DatasetType) LongForm() string {
	switch t {
	case ProbeSet:
		return "mRNA"
	case Geno:
		return "Genotype"
	case Publish:
		return "Phenotype"
	}
	return fmt.Sprintf("DatasetType(%d)", int(t))
}

// Category returns the category key the ungrouped-data query expects.
func (t DatasetType) Category() string {
	switch t {
	case ProbeSet:
		return "mrna"
	case Geno:
		return "genotype"
	case Publish:
		return "phenotype"
	}
	return fmt.Sprintf("DatasetType(%d)", int(t))
}

// LegacyRecord is one dataset entry read from the legacy store.
type LegacyRecord struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

// Partition folds legacy records into the three disjoint per-type name
// collections. Records with unknown type tags are dropped, matching the
// legacy importer's behaviour.
func Partition(records []LegacyRecord) map[DatasetType][]string {
	byType := map[DatasetType][]string{
		ProbeSet: nil,
		Geno:     nil,
		Publish:  nil,
	}
	for _, record := range records {
		t, err := ParseLegacyTag(record.Type)
		if err != nil {
			continue
		}
		byType[t] = append(byType[t], record.Name)
	}
	return byType
}
