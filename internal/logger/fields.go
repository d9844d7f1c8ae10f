package logger

// Standard field keys for structured logging. Use these consistently across
// log statements so backend logs stay queryable.
const (
	// I/O operations
	KeyPath         = "path"          // resource path or URL
	KeyBackend      = "backend"       // stream backend: file, memory, remote
	KeyOffset       = "offset"        // cursor offset for read/write operations
	KeyCount        = "count"         // byte count requested
	KeyBytesRead    = "bytes_read"    // actual bytes read
	KeyBytesWritten = "bytes_written" // actual bytes written
	KeyEOF          = "eof"           // end of stream indicator
	KeyMode         = "mode"          // file open mode string

	// Remote block cache
	KeyBlockSize = "block_size" // cache cell granularity in bytes
	KeyLowBlock  = "low_block"  // first block index of a fetch span
	KeyHighBlock = "high_block" // last block index of a fetch span
	KeyStatus    = "status"     // transport status code

	// Errors
	KeyError = "error" // error message
)
