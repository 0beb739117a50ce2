package vlog

import "strconv"

// ValueHandle identifies one record's value bytes inside a blob file: the
// segment it lives in and the byte offset of the value's length prefix
// (spec §3 "ValueHandle").
type ValueHandle struct {
	SegmentID uint64
	Offset    uint64
}

func (h ValueHandle) String() string {
	return strconv.FormatUint(h.SegmentID, 10) + ":" + strconv.FormatUint(h.Offset, 10)
}
