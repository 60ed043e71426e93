// Package wire implements the two binary formats spoken between the
// runtime and a rendering engine. All integers are little-endian; offsets
// are bytes from the start of the blob. Encoding is deterministic: the
// same input always produces the same bytes.
//
// Event batch (engine to runtime), header 24 bytes:
//
//	@0  u32 magic "ZREV"
//	@4  u32 version (1)
//	@8  u32 total_size (header + all records)
//	@12 u32 record count
//	@16 u32 flags (bit 0: frame ack)
//	@20 u32 dropped (cumulative dropped-event counter)
//
// Records follow at @24, each 4-byte aligned, with a 16 byte header:
//
//	@0  u32 kind
//	@4  u32 size (header + body + padding)
//	@8  u32 time_ms
//	@12 u32 reserved (zero)
//
// Drawlist (runtime to engine), header 48 bytes:
//
//	@0  u32 magic "ZRDL"
//	@4  u32 version (1)
//	@8  u32 flags
//	@12 u32 total_size
//	@16 u32 cmd_offset    @20 u32 cmd_bytes   @24 u32 cmd_count
//	@28 u32 span_offset   @32 u32 span_count
//	@36 u32 bytes_offset  @40 u32 bytes_len
//	@44 u32 reserved (zero)
//
// The command stream is a sequence of u32/i32 words. Text commands
// reference strings by span index; the span table holds (start, end)
// byte ranges into the UTF-8 bytes region, and equal strings share one
// span. total_size is 4-byte aligned so drawlists concatenate into a
// self-delimiting stream.
package wire

import "fmt"

// Magic numbers, read as little-endian u32 over the ASCII tags.
const (
	BatchMagic    uint32 = 0x5645525A // "ZREV"
	DrawlistMagic uint32 = 0x4C44525A // "ZRDL"

	BatchVersion    uint32 = 1
	DrawlistVersion uint32 = 1
)

const (
	batchHeaderSize    = 24
	recordHeaderSize   = 16
	drawlistHeaderSize = 48
)

// Batch flag bits.
const (
	// FlagFrameAck marks a batch acknowledging a submitted frame. Ack
	// batches may carry zero events.
	FlagFrameAck uint32 = 1 << 0
)

// DecodeError reports a malformed blob, naming the offending byte
// offset.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: %s at offset %d", e.Msg, e.Offset)
}

func decodeErrorf(offset int, format string, args ...any) *DecodeError {
	return &DecodeError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
