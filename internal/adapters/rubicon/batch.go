package rubicon

import (
	"strings"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/internal/slots"
)

const maxBatchSlots = config.MaxBatchSlots

// SiteGroup is an ordered list of slots sharing a site id
type SiteGroup struct {
	SiteID string
	Slots  []*slots.SlotRequest
}

// GroupBySite groups slots by site id. Groups appear in the order their
// site was first seen and keep slot order within a group.
func GroupBySite(in []*slots.SlotRequest) []SiteGroup {
	index := make(map[string]int)
	var groups []SiteGroup
	for _, slot := range in {
		site := slot.Params.SiteID.String()
		i, ok := index[site]
		if !ok {
			i = len(groups)
			index[site] = i
			groups = append(groups, SiteGroup{SiteID: site})
		}
		groups[i].Slots = append(groups[i].Slots, slot)
	}
	return groups
}

// capBatch truncates a group to the single-request limit. The i-th ad in
// the reply belongs to the i-th slot kept here, so truncation keeps the
// head of the group in order.
func capBatch(g SiteGroup) (SiteGroup, error) {
	if len(g.Slots) <= maxBatchSlots {
		return g, nil
	}
	dropped := len(g.Slots) - maxBatchSlots
	return SiteGroup{SiteID: g.SiteID, Slots: g.Slots[:maxBatchSlots]},
		&BatchOverflowError{SiteID: g.SiteID, Dropped: dropped}
}

// CombineSlotParams folds per-slot parameter sets into one. A single set is
// returned unchanged. Otherwise every key from any set maps to the values
// of all sets joined by ";" in set order, missing values left empty, and
// collapsed to one token when all tokens agree.
func CombineSlotParams(sets []*ParameterSet) *ParameterSet {
	if len(sets) == 1 {
		return sets[0]
	}

	combined := NewParameterSet()
	var keys []string
	seen := make(map[string]bool)
	for _, set := range sets {
		for _, k := range set.keys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	tokens := make([]string, len(sets))
	for _, k := range keys {
		for i, set := range sets {
			tokens[i] = ""
			if v, ok := set.values[k]; ok {
				tokens[i] = v.String()
			}
		}
		combined.Set(k, slots.StringValue(collapse(tokens)))
	}
	return combined
}

// collapse joins tokens with ";" unless every token is identical. Tokens
// may themselves contain ";", so the check runs on the joined string.
func collapse(tokens []string) string {
	joined := strings.Join(tokens, ";")
	parts := strings.Split(joined, ";")
	if len(parts) < 2 {
		return joined
	}
	for _, p := range parts[1:] {
		if p != parts[0] {
			return joined
		}
	}
	return parts[0]
}
