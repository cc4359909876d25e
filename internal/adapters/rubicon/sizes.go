package rubicon

import (
	"sort"

	"github.com/thenexusengine/tne_fastlane/internal/slots"
)

// sizeTable maps Fastlane size codes to pixel dimensions
var sizeTable = map[int]slots.Size{
	1:   {W: 468, H: 60},
	2:   {W: 728, H: 90},
	5:   {W: 120, H: 90},
	8:   {W: 120, H: 600},
	9:   {W: 160, H: 600},
	10:  {W: 300, H: 600},
	13:  {W: 200, H: 200},
	14:  {W: 250, H: 250},
	15:  {W: 300, H: 250},
	16:  {W: 336, H: 280},
	19:  {W: 300, H: 100},
	31:  {W: 980, H: 120},
	32:  {W: 250, H: 360},
	33:  {W: 180, H: 500},
	35:  {W: 980, H: 150},
	37:  {W: 468, H: 400},
	38:  {W: 930, H: 180},
	43:  {W: 320, H: 50},
	44:  {W: 300, H: 50},
	48:  {W: 300, H: 300},
	54:  {W: 300, H: 1050},
	55:  {W: 970, H: 90},
	57:  {W: 970, H: 250},
	58:  {W: 1000, H: 90},
	59:  {W: 320, H: 80},
	60:  {W: 320, H: 150},
	61:  {W: 1000, H: 1000},
	65:  {W: 640, H: 480},
	67:  {W: 320, H: 480},
	68:  {W: 1800, H: 1000},
	72:  {W: 320, H: 320},
	73:  {W: 320, H: 160},
	78:  {W: 980, H: 240},
	79:  {W: 980, H: 300},
	80:  {W: 980, H: 400},
	83:  {W: 480, H: 300},
	94:  {W: 970, H: 310},
	96:  {W: 970, H: 210},
	101: {W: 480, H: 320},
	102: {W: 768, H: 1024},
	103: {W: 480, H: 280},
	108: {W: 320, H: 240},
	113: {W: 1000, H: 300},
	117: {W: 320, H: 100},
	125: {W: 800, H: 250},
	126: {W: 200, H: 600},
	144: {W: 980, H: 600},
	195: {W: 600, H: 300},
	199: {W: 640, H: 200},
	213: {W: 1030, H: 590},
	214: {W: 980, H: 360},
}

// sizeCodes is the reverse of sizeTable
var sizeCodes = func() map[slots.Size]int {
	m := make(map[slots.Size]int, len(sizeTable))
	for code, size := range sizeTable {
		m[size] = code
	}
	return m
}()

// masPriority lists the premium codes that always lead a size list:
// 300x250, 728x90, 160x600
var masPriority = []int{15, 2, 9}

// SizeID resolves a width/height pair to its size code
func SizeID(w, h int) (int, bool) {
	code, ok := sizeCodes[slots.Size{W: w, H: h}]
	return code, ok
}

// SizeDimensions decodes a size code
func SizeDimensions(code int) (w, h int, err error) {
	size, ok := sizeTable[code]
	if !ok {
		return 0, 0, &UnknownSizeCodeError{Code: code}
	}
	return size.W, size.H, nil
}

func priorityRank(code int) int {
	for i, p := range masPriority {
		if p == code {
			return i
		}
	}
	return -1
}

// MASSizeOrdering returns a new slice with the priority codes first, in
// priority order, followed by every other code ascending. The input is not
// modified.
func MASSizeOrdering(codes []int) []int {
	out := make([]int, len(codes))
	copy(out, codes)

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := priorityRank(out[i]), priorityRank(out[j])
		switch {
		case ri >= 0 && rj >= 0:
			return ri < rj
		case ri >= 0:
			return true
		case rj >= 0:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// mapSizes resolves size pairs to codes, dropping pairs outside the table
func mapSizes(sizes slots.Sizes) []int {
	codes := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if code, ok := SizeID(s.W, s.H); ok {
			codes = append(codes, code)
		}
	}
	return codes
}
