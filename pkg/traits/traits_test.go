package traits

import (
	"testing"

	"github.com/genenetwork/gn-auth/pkg/datasets"
)

func TestParse(t *testing.T) {
	tests := []struct {
		fullname string
		want     Trait
	}{
		{
			fullname: "HC_M2_0606_P::1442370_at",
			want: Trait{
				FullName:    "HC_M2_0606_P::1442370_at",
				Name:        "1442370_at",
				DatasetName: "HC_M2_0606_P",
				DatasetType: datasets.ProbeSet,
			},
		},
		{
			fullname: "BXDGeno::01.001.695",
			want: Trait{
				FullName:    "BXDGeno::01.001.695",
				Name:        "01.001.695",
				DatasetName: "BXDGeno",
				DatasetType: datasets.Geno,
			},
		},
		{
			fullname: "BXDPublish::10001",
			want: Trait{
				FullName:    "BXDPublish::10001",
				Name:        "10001",
				DatasetName: "BXDPublish",
				DatasetType: datasets.Publish,
			},
		},
		{
			fullname: "HC_M2_0606_P::1442370_at::B6D2F1",
			want: Trait{
				FullName:    "HC_M2_0606_P::1442370_at::B6D2F1",
				Name:        "1442370_at",
				CellID:      "B6D2F1",
				DatasetName: "HC_M2_0606_P",
				DatasetType: datasets.ProbeSet,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.fullname, func(t *testing.T) {
			got, err := Parse(tt.fullname)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.fullname, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.fullname, got, tt.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, fullname := range []string{"", "nodelimiter", "BXDGeno::", "::10001"} {
		if _, err := Parse(fullname); err == nil {
			t.Errorf("Parse(%q) should fail", fullname)
		}
	}
}

func TestParseAll(t *testing.T) {
	traits, err := ParseAll([]string{"BXDGeno::01.001.695", "BXDPublish::10001"})
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(traits) != 2 {
		t.Fatalf("expected 2 traits, got %d", len(traits))
	}

	if _, err := ParseAll([]string{"BXDGeno::01.001.695", "bad"}); err == nil {
		t.Error("ParseAll should fail on a malformed name")
	}
}

func TestDataKey(t *testing.T) {
	trait, err := Parse("BXDPublish::10001")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if key := trait.DataKey(); key != "phenotype::BXDPublish" {
		t.Errorf("unexpected data key %q", key)
	}
}
