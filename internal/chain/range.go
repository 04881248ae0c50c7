package chain

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := to
		if to-start+1 > batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges, nil
}

// PendingRange returns the blocks a poller still has to fetch after cursor,
// given the current head. When the poller has fallen more than maxLag blocks
// behind, older blocks are skipped so only the newest maxLag are fetched.
// ok is false when there is nothing new.
func PendingRange(cursor, head, maxLag uint64) (r BlockRange, skipped uint64, ok bool) {
	if head <= cursor {
		return BlockRange{}, 0, false
	}
	from := cursor + 1
	if maxLag > 0 && head-cursor > maxLag {
		skipped = head - cursor - maxLag
		from = head - maxLag + 1
	}
	return BlockRange{From: from, To: head}, skipped, true
}
