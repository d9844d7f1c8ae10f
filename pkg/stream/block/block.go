// Package block provides the cache cells and offset math used by the
// remote byte-stream backend.
//
// A remote resource is partitioned into fixed-size blocks, each tracked by
// one Cell. Cells move through three states:
//
//   - None: nothing is known about this block
//   - Known: the block's size is known but its bytes were never fetched;
//     readers treat it as zero-filled
//   - Materialized: the block's bytes are cached locally
//
// The state is private so that a Materialized cell without data is
// unrepresentable.
package block

// State describes what a Cell currently holds.
type State uint8

const (
	// None means the cell has never been populated or sized.
	None State = iota

	// Known means the cell's size is known but its bytes are not cached.
	Known

	// Materialized means the cell owns a local copy of its bytes.
	Materialized
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case None:
		return "none"
	case Known:
		return "known"
	case Materialized:
		return "materialized"
	default:
		return "invalid"
	}
}

// Cell is a fixed-size tagged byte-range of a remote resource.
//
// The zero value is a None cell. Each cell exclusively owns its buffer;
// Populate copies the source bytes so callers may reuse their slices.
type Cell struct {
	state State
	size  int64
	data  []byte
}

// Populate materializes the cell with a copy of src.
func (c *Cell) Populate(src []byte) {
	c.size = int64(len(src))
	c.data = make([]byte, len(src))
	copy(c.data, src)
	c.state = Materialized
}

// MarkKnown records the cell's size without caching its bytes. Known cells
// read as zero-filled; they exist for regions the consumer never needs.
func (c *Cell) MarkKnown(size int64) {
	c.state = Known
	c.size = size
	c.data = nil
}

// IsNone reports whether nothing is known about the cell yet.
func (c *Cell) IsNone() bool { return c.state == None }

// IsKnown reports whether the cell is a size-only placeholder.
func (c *Cell) IsKnown() bool { return c.state == Known }

// State returns the cell's current state.
func (c *Cell) State() State { return c.state }

// Size returns the byte length this cell represents. It is meaningful only
// for Known and Materialized cells.
func (c *Cell) Size() int64 { return c.size }

// Data returns the cached bytes, or nil unless the cell is Materialized.
func (c *Cell) Data() []byte { return c.data }

// Count returns the number of cells needed to cover totalSize bytes at the
// given block size.
func Count(totalSize, blockSize int64) int64 {
	return (totalSize + blockSize - 1) / blockSize
}

// Span returns the inclusive block range covering the byte range starting
// at offset and spanning length bytes.
func Span(offset, length, blockSize int64) (low, high int64) {
	low = offset / blockSize
	if length == 0 {
		return low, low
	}
	high = (offset + length) / blockSize
	return low, high
}

// Bounds returns the byte range [start, end) represented by the cell at
// index within a resource of totalSize bytes.
func Bounds(index, blockSize, totalSize int64) (start, end int64) {
	start = index * blockSize
	end = start + blockSize
	if end > totalSize {
		end = totalSize
	}
	return start, end
}
