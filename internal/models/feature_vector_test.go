package models

import "testing"

func TestTotalEntityCountSumsTypedCounts(t *testing.T) {
	f := &FeatureVector{
		CNPJCount:    1,
		CPFCount:     2,
		PhoneCount:   3,
		EmailCount:   4,
		MoneyCount:   5,
		CompanyCount: 6,
	}
	if got := f.TotalEntityCount(); got != 21 {
		t.Fatalf("TotalEntityCount() = %v, want 21", got)
	}
}

func TestFeatureNamesHasFixedDimensionCount(t *testing.T) {
	names := FeatureNames()
	if len(names) != FeatureDimensions {
		t.Fatalf("len(FeatureNames()) = %d, want %d", len(names), FeatureDimensions)
	}
}

func TestToSliceMatchesFeatureNamesDimensionCount(t *testing.T) {
	f := &FeatureVector{}
	slice := f.ToSlice()
	if len(slice) != FeatureDimensions {
		t.Fatalf("len(ToSlice()) = %d, want %d", len(slice), FeatureDimensions)
	}
}

func TestToSliceEncodesBooleansAsZeroOrOne(t *testing.T) {
	f := &FeatureVector{HasFinancialValues: true, DeadlineMentioned: false}
	slice := f.ToSlice()

	names := FeatureNames()
	financialIdx := indexOf(names, "has_financial_values")
	deadlineIdx := indexOf(names, "deadline_mentioned")

	if slice[financialIdx] != 1 {
		t.Fatalf("has_financial_values encoded as %v, want 1", slice[financialIdx])
	}
	if slice[deadlineIdx] != 0 {
		t.Fatalf("deadline_mentioned encoded as %v, want 0", slice[deadlineIdx])
	}
}

func TestToSliceDerivesEntityCountFromTypedCounts(t *testing.T) {
	f := &FeatureVector{CNPJCount: 2, EmailCount: 3}
	slice := f.ToSlice()

	names := FeatureNames()
	entityIdx := indexOf(names, "entity_count")

	if slice[entityIdx] != 5 {
		t.Fatalf("entity_count = %v, want 5", slice[entityIdx])
	}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
