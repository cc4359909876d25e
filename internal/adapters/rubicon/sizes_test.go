package rubicon

import (
	"errors"
	"reflect"
	"testing"

	"github.com/thenexusengine/tne_fastlane/internal/slots"
)

func TestSizeTable_RoundTrip(t *testing.T) {
	if len(sizeTable) != 51 {
		t.Fatalf("Expected 51 size codes, got %d", len(sizeTable))
	}
	for code, size := range sizeTable {
		id, ok := SizeID(size.W, size.H)
		if !ok {
			t.Errorf("SizeID(%s) not found", size)
			continue
		}
		if id != code {
			t.Errorf("SizeID(%s) = %d, want %d", size, id, code)
		}
		w, h, err := SizeDimensions(id)
		if err != nil {
			t.Errorf("SizeDimensions(%d) error: %v", id, err)
		}
		if w != size.W || h != size.H {
			t.Errorf("SizeDimensions(%d) = %dx%d, want %s", id, w, h, size)
		}
	}
}

func TestSizeID_Unknown(t *testing.T) {
	if _, ok := SizeID(1, 1); ok {
		t.Error("Expected 1x1 to be unknown")
	}
}

func TestSizeDimensions_Unknown(t *testing.T) {
	_, _, err := SizeDimensions(9999)
	var unknown *UnknownSizeCodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownSizeCodeError, got %v", err)
	}
	if unknown.Code != 9999 {
		t.Errorf("Expected code 9999, got %d", unknown.Code)
	}
}

func TestMASSizeOrdering(t *testing.T) {
	tests := []struct {
		name     string
		input    []int
		expected []int
	}{
		{"priority first", []int{55, 57, 15, 2}, []int{15, 2, 55, 57}},
		{"priority order", []int{9, 2, 15}, []int{15, 2, 9}},
		{"ascending rest", []int{101, 43, 8}, []int{8, 43, 101}},
		{"mixed", []int{9, 61, 43, 2}, []int{2, 9, 43, 61}},
		{"single", []int{57}, []int{57}},
		{"empty", []int{}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MASSizeOrdering(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("MASSizeOrdering(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMASSizeOrdering_Idempotent(t *testing.T) {
	inputs := [][]int{
		{2, 9, 15},
		{9, 15, 2, 57, 43},
		{1, 102, 55, 9},
	}
	for _, in := range inputs {
		once := MASSizeOrdering(in)
		twice := MASSizeOrdering(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("ordering %v not idempotent: %v then %v", in, once, twice)
		}
	}
}

func TestMASSizeOrdering_PriorityAlwaysLeads(t *testing.T) {
	perms := [][]int{
		{15, 2, 9}, {15, 9, 2}, {2, 15, 9},
		{2, 9, 15}, {9, 15, 2}, {9, 2, 15},
	}
	for _, p := range perms {
		in := append([]int{43}, p...)
		got := MASSizeOrdering(in)
		if !reflect.DeepEqual(got, []int{15, 2, 9, 43}) {
			t.Errorf("MASSizeOrdering(%v) = %v", in, got)
		}
	}
}

func TestMASSizeOrdering_DoesNotMutateInput(t *testing.T) {
	in := []int{57, 2, 15}
	_ = MASSizeOrdering(in)
	if !reflect.DeepEqual(in, []int{57, 2, 15}) {
		t.Errorf("input mutated: %v", in)
	}
}

func TestMapSizes_DropsUnknown(t *testing.T) {
	got := mapSizes(slots.Sizes{{W: 300, H: 250}, {W: 1, H: 1}, {W: 728, H: 90}})
	if !reflect.DeepEqual(got, []int{15, 2}) {
		t.Errorf("mapSizes = %v, want [15 2]", got)
	}
}
