package wire

// Op tags a drawlist command.
type Op uint32

const (
	OpFill     Op = 1 // x y w h rune fg bg attrs
	OpText     Op = 2 // x y span fg bg attrs
	OpClipPush Op = 3 // x y w h
	OpClipPop  Op = 4
	OpCursor   Op = 5 // x y shape blink visible
)

func opWords(op Op) int {
	switch op {
	case OpFill:
		return 9
	case OpText:
		return 7
	case OpClipPush:
		return 5
	case OpClipPop:
		return 1
	case OpCursor:
		return 6
	}
	return 0
}

// Color is a packed color: 0 is the terminal default, otherwise
// 0x01RRGGBB.
const ColorDefault uint32 = 0

// RGB packs a color.
func RGB(r, g, b uint8) uint32 {
	return 1<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Attribute bits.
const (
	AttrBold uint32 = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrInverse
	AttrStrike
	AttrBlink
)

// Style is the color and attribute triple attached to fill and text
// commands.
type Style struct {
	FG, BG uint32
	Attrs  uint32
}

// CursorShape selects the rendered cursor glyph.
type CursorShape uint32

const (
	CursorBlock CursorShape = iota
	CursorBar
	CursorUnderline
)

// DrawlistBuilder accumulates commands for one frame and assembles the
// drawlist blob. Equal strings are interned: they share one span in the
// string table. The zero value is ready to use; Reset reuses the
// allocations for the next frame.
type DrawlistBuilder struct {
	flags   uint32
	words   []uint32
	cmds    uint32
	spans   []uint32 // (start, end) pairs into blob
	interns map[string]uint32
	blob    []byte
}

// Reset clears the builder for a new frame, keeping capacity.
func (b *DrawlistBuilder) Reset() {
	b.flags = 0
	b.words = b.words[:0]
	b.cmds = 0
	b.spans = b.spans[:0]
	b.blob = b.blob[:0]
	clear(b.interns)
}

// SetFlags sets the frame flag word.
func (b *DrawlistBuilder) SetFlags(flags uint32) { b.flags = flags }

// CmdCount returns the number of commands recorded so far.
func (b *DrawlistBuilder) CmdCount() int { return int(b.cmds) }

func (b *DrawlistBuilder) op(op Op, words ...uint32) {
	b.words = append(b.words, uint32(op))
	b.words = append(b.words, words...)
	b.cmds++
}

// Fill covers the rectangle with a single rune in the given style.
func (b *DrawlistBuilder) Fill(x, y, w, h int, r rune, st Style) {
	if w <= 0 || h <= 0 {
		return
	}
	b.op(OpFill, uint32(int32(x)), uint32(int32(y)), uint32(int32(w)), uint32(int32(h)),
		uint32(r), st.FG, st.BG, st.Attrs)
}

// TextRun draws s starting at the cell (x, y).
func (b *DrawlistBuilder) TextRun(x, y int, s string, st Style) {
	if s == "" {
		return
	}
	b.op(OpText, uint32(int32(x)), uint32(int32(y)), b.intern(s), st.FG, st.BG, st.Attrs)
}

// PushClip intersects the clip stack with the rectangle.
func (b *DrawlistBuilder) PushClip(x, y, w, h int) {
	b.op(OpClipPush, uint32(int32(x)), uint32(int32(y)), uint32(int32(w)), uint32(int32(h)))
}

// PopClip pops the innermost clip rectangle.
func (b *DrawlistBuilder) PopClip() {
	b.op(OpClipPop)
}

// Cursor places the terminal cursor. At most one cursor command should
// be emitted per frame; later ones win.
func (b *DrawlistBuilder) Cursor(x, y int, shape CursorShape, blink, visible bool) {
	b.op(OpCursor, uint32(int32(x)), uint32(int32(y)), uint32(shape),
		boolWord(blink), boolWord(visible))
}

func boolWord(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

func (b *DrawlistBuilder) intern(s string) uint32 {
	if b.interns == nil {
		b.interns = make(map[string]uint32)
	}
	if idx, ok := b.interns[s]; ok {
		return idx
	}
	idx := uint32(len(b.spans) / 2)
	start := uint32(len(b.blob))
	b.blob = append(b.blob, s...)
	b.spans = append(b.spans, start, uint32(len(b.blob)))
	b.interns[s] = idx
	return idx
}

// Bytes assembles the drawlist blob. The layout is header, command
// stream, span table, string bytes; total_size is padded to a 4-byte
// boundary so frames concatenate cleanly.
func (b *DrawlistBuilder) Bytes() []byte {
	cmdBytes := len(b.words) * 4
	spanBytes := len(b.spans) * 4
	cmdOffset := drawlistHeaderSize
	spanOffset := cmdOffset + cmdBytes
	bytesOffset := spanOffset + spanBytes
	total := pad4(bytesOffset + len(b.blob))

	buf := make([]byte, total)
	le.PutUint32(buf[0:], DrawlistMagic)
	le.PutUint32(buf[4:], DrawlistVersion)
	le.PutUint32(buf[8:], b.flags)
	le.PutUint32(buf[12:], uint32(total))
	le.PutUint32(buf[16:], uint32(cmdOffset))
	le.PutUint32(buf[20:], uint32(cmdBytes))
	le.PutUint32(buf[24:], b.cmds)
	le.PutUint32(buf[28:], uint32(spanOffset))
	le.PutUint32(buf[32:], uint32(len(b.spans)/2))
	le.PutUint32(buf[36:], uint32(bytesOffset))
	le.PutUint32(buf[40:], uint32(len(b.blob)))
	le.PutUint32(buf[44:], 0)
	for i, w := range b.words {
		le.PutUint32(buf[cmdOffset+i*4:], w)
	}
	for i, w := range b.spans {
		le.PutUint32(buf[spanOffset+i*4:], w)
	}
	copy(buf[bytesOffset:], b.blob)
	return buf
}

// Cmd is one decoded drawing command, tagged by Op.
type Cmd struct {
	Op         Op
	X, Y, W, H int32
	Rune       rune
	Span       uint32
	Style      Style
	Shape      CursorShape
	Blink      bool
	Visible    bool
}

// Drawlist is a decoded frame.
type Drawlist struct {
	Flags   uint32
	Cmds    []Cmd
	Strings []string
}

// Text returns the string referenced by a text command.
func (d *Drawlist) Text(c Cmd) string {
	if int(c.Span) < len(d.Strings) {
		return d.Strings[c.Span]
	}
	return ""
}

// ParseDrawlist validates and decodes one drawlist blob. Every declared
// region must lie inside total_size, every span must resolve inside the
// string bytes, and the command stream must walk to exactly cmd_bytes in
// cmd_count commands; violations return a *DecodeError with the
// offending offset.
func ParseDrawlist(buf []byte) (*Drawlist, error) {
	if len(buf) < drawlistHeaderSize {
		return nil, decodeErrorf(0, "drawlist header truncated: %d bytes", len(buf))
	}
	if m := le.Uint32(buf[0:]); m != DrawlistMagic {
		return nil, decodeErrorf(0, "bad drawlist magic 0x%08x", m)
	}
	if v := le.Uint32(buf[4:]); v != DrawlistVersion {
		return nil, decodeErrorf(4, "unsupported drawlist version %d", v)
	}
	total := int(le.Uint32(buf[12:]))
	if total < drawlistHeaderSize || total > len(buf) {
		return nil, decodeErrorf(12, "declared total size %d outside buffer of %d bytes", total, len(buf))
	}
	cmdOffset := int(le.Uint32(buf[16:]))
	cmdBytes := int(le.Uint32(buf[20:]))
	cmdCount := int(le.Uint32(buf[24:]))
	spanOffset := int(le.Uint32(buf[28:]))
	spanCount := int(le.Uint32(buf[32:]))
	bytesOffset := int(le.Uint32(buf[36:]))
	bytesLen := int(le.Uint32(buf[40:]))

	switch {
	case cmdOffset < drawlistHeaderSize || cmdBytes < 0 || cmdOffset+cmdBytes > total:
		return nil, decodeErrorf(16, "command region [%d, %d) outside drawlist", cmdOffset, cmdOffset+cmdBytes)
	case cmdBytes%4 != 0:
		return nil, decodeErrorf(20, "command bytes %d unaligned", cmdBytes)
	case spanOffset < drawlistHeaderSize || spanOffset+spanCount*8 > total:
		return nil, decodeErrorf(28, "span table [%d, %d) outside drawlist", spanOffset, spanOffset+spanCount*8)
	case bytesOffset < drawlistHeaderSize || bytesOffset+bytesLen > total:
		return nil, decodeErrorf(36, "string bytes [%d, %d) outside drawlist", bytesOffset, bytesOffset+bytesLen)
	}

	d := &Drawlist{Flags: le.Uint32(buf[8:])}

	d.Strings = make([]string, spanCount)
	for i := 0; i < spanCount; i++ {
		off := spanOffset + i*8
		start := int(le.Uint32(buf[off:]))
		end := int(le.Uint32(buf[off+4:]))
		if start > end || end > bytesLen {
			return nil, decodeErrorf(off, "span %d [%d, %d) outside string bytes of %d", i, start, end, bytesLen)
		}
		d.Strings[i] = string(buf[bytesOffset+start : bytesOffset+end])
	}

	words := cmdBytes / 4
	w := 0
	at := func() int { return cmdOffset + w*4 }
	word := func(k int) uint32 { return le.Uint32(buf[cmdOffset+(w+k)*4:]) }
	for n := 0; n < cmdCount; n++ {
		if w >= words {
			return nil, decodeErrorf(at(), "command stream ends after %d of %d commands", n, cmdCount)
		}
		op := Op(word(0))
		need := opWords(op)
		if need == 0 {
			return nil, decodeErrorf(at(), "unknown command op %d", op)
		}
		if w+need > words {
			return nil, decodeErrorf(at(), "command %d overruns command region", n)
		}
		c := Cmd{Op: op}
		switch op {
		case OpFill:
			c.X, c.Y = int32(word(1)), int32(word(2))
			c.W, c.H = int32(word(3)), int32(word(4))
			c.Rune = rune(word(5))
			c.Style = Style{FG: word(6), BG: word(7), Attrs: word(8)}
		case OpText:
			c.X, c.Y = int32(word(1)), int32(word(2))
			c.Span = word(3)
			if int(c.Span) >= spanCount {
				return nil, decodeErrorf(at(), "text command references span %d of %d", c.Span, spanCount)
			}
			c.Style = Style{FG: word(4), BG: word(5), Attrs: word(6)}
		case OpClipPush:
			c.X, c.Y = int32(word(1)), int32(word(2))
			c.W, c.H = int32(word(3)), int32(word(4))
		case OpCursor:
			c.X, c.Y = int32(word(1)), int32(word(2))
			c.Shape = CursorShape(word(3))
			c.Blink = word(4) != 0
			c.Visible = word(5) != 0
		}
		d.Cmds = append(d.Cmds, c)
		w += need
	}
	if w != words {
		return nil, decodeErrorf(at(), "command region has %d words beyond %d commands", words-w, cmdCount)
	}
	return d, nil
}

// SplitFrames splits a byte stream of concatenated drawlists on their
// declared total_size boundaries. A trailing partial frame is an error.
func SplitFrames(buf []byte) ([][]byte, error) {
	var frames [][]byte
	off := 0
	for off < len(buf) {
		if len(buf)-off < 16 {
			return nil, decodeErrorf(off, "partial drawlist header at end of stream")
		}
		if m := le.Uint32(buf[off:]); m != DrawlistMagic {
			return nil, decodeErrorf(off, "bad drawlist magic 0x%08x", m)
		}
		total := int(le.Uint32(buf[off+12:]))
		if total < drawlistHeaderSize {
			return nil, decodeErrorf(off+12, "declared total size %d below header size", total)
		}
		if off+total > len(buf) {
			return nil, decodeErrorf(off+12, "frame of %d bytes overruns stream", total)
		}
		frames = append(frames, buf[off:off+total])
		off += total
	}
	return frames, nil
}

// BatchSize reads the declared total size of an event batch from its
// header prefix, for framed stream reads.
func BatchSize(header []byte) (int, error) {
	if len(header) < 12 {
		return 0, decodeErrorf(0, "batch header truncated: %d bytes", len(header))
	}
	if m := le.Uint32(header[0:]); m != BatchMagic {
		return 0, decodeErrorf(0, "bad batch magic 0x%08x", m)
	}
	n := int(le.Uint32(header[8:]))
	if n < batchHeaderSize {
		return 0, decodeErrorf(8, "declared total size %d below header size", n)
	}
	return n, nil
}
