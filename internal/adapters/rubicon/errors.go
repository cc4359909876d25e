package rubicon

import "fmt"

// ValidationError reports a slot that cannot be compiled. The slot is left
// out of every wire request.
type ValidationError struct {
	BidID  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rubicon: invalid slot %q: %s", e.BidID, e.Reason)
}

// DroppedSlots implements adapters.SlotDropError
func (e *ValidationError) DroppedSlots() int { return 1 }

// DropReason implements adapters.SlotDropError
func (e *ValidationError) DropReason() string { return "invalid" }

// UnknownSizeCodeError reports a size code missing from the size table
type UnknownSizeCodeError struct {
	Code int
}

func (e *UnknownSizeCodeError) Error() string {
	return fmt.Sprintf("rubicon: unknown size code %d", e.Code)
}

// BatchOverflowError reports slots dropped from a site group that exceeded
// the single-request limit
type BatchOverflowError struct {
	SiteID  string
	Dropped int
}

func (e *BatchOverflowError) Error() string {
	return fmt.Sprintf("rubicon: single request mode has a limit of %d slots: %d slots for site %q were not sent",
		maxBatchSlots, e.Dropped, e.SiteID)
}

// DroppedSlots implements adapters.SlotDropError
func (e *BatchOverflowError) DroppedSlots() int { return e.Dropped }

// DropReason implements adapters.SlotDropError
func (e *BatchOverflowError) DropReason() string { return "overflow" }

// MalformedAdError reports an ad whose status was not "ok". Ads after it in
// the same reply are discarded.
type MalformedAdError struct {
	Index     int
	Status    string
	Discarded int
}

func (e *MalformedAdError) Error() string {
	return fmt.Sprintf("rubicon: ad %d has status %q, %d remaining ads discarded", e.Index, e.Status, e.Discarded)
}
