package wire

import "encoding/binary"

var le = binary.LittleEndian

// Batch is a decoded event batch.
type Batch struct {
	Events  []Event
	Flags   uint32
	Dropped uint32
}

// Ack reports whether the batch acknowledges a submitted frame.
func (b *Batch) Ack() bool { return b.Flags&FlagFrameAck != 0 }

// EncodeBatch encodes events into one batch blob. The stub engine and
// tests use it; a native engine produces the same layout.
func EncodeBatch(events []Event, flags, dropped uint32) []byte {
	size := batchHeaderSize
	for _, ev := range events {
		size += recordSize(ev)
	}
	buf := make([]byte, size)
	le.PutUint32(buf[0:], BatchMagic)
	le.PutUint32(buf[4:], BatchVersion)
	le.PutUint32(buf[8:], uint32(size))
	le.PutUint32(buf[12:], uint32(len(events)))
	le.PutUint32(buf[16:], flags)
	le.PutUint32(buf[20:], dropped)
	off := batchHeaderSize
	for _, ev := range events {
		off = putRecord(buf, off, ev)
	}
	return buf
}

// EncodeAck encodes an empty frame-ack batch.
func EncodeAck(dropped uint32) []byte {
	return EncodeBatch(nil, FlagFrameAck, dropped)
}

func pad4(n int) int { return (n + 3) &^ 3 }

func recordSize(ev Event) int {
	switch e := ev.(type) {
	case KeyEvent:
		return 28
	case TextEvent:
		return 20
	case MouseEvent:
		return 36
	case ResizeEvent:
		return 24
	case TickEvent:
		return 16
	case PasteEvent:
		return pad4(20 + len(e.Data))
	case UserEvent:
		return pad4(24 + len(e.Payload))
	}
	return 0
}

func putHeader(buf []byte, off int, kind EventKind, size int, timeMs uint32) {
	le.PutUint32(buf[off:], uint32(kind))
	le.PutUint32(buf[off+4:], uint32(size))
	le.PutUint32(buf[off+8:], timeMs)
	le.PutUint32(buf[off+12:], 0)
}

func putRecord(buf []byte, off int, ev Event) int {
	size := recordSize(ev)
	switch e := ev.(type) {
	case KeyEvent:
		putHeader(buf, off, KindKey, size, e.Time)
		le.PutUint32(buf[off+16:], uint32(e.Code))
		le.PutUint32(buf[off+20:], uint32(e.Mods))
		le.PutUint32(buf[off+24:], uint32(e.Action))
	case TextEvent:
		putHeader(buf, off, KindText, size, e.Time)
		le.PutUint32(buf[off+16:], uint32(e.Rune))
	case MouseEvent:
		putHeader(buf, off, KindMouse, size, e.Time)
		le.PutUint32(buf[off+16:], uint32(e.X))
		le.PutUint32(buf[off+20:], uint32(e.Y))
		le.PutUint32(buf[off+24:], e.Buttons)
		le.PutUint32(buf[off+28:], uint32(e.Action))
		le.PutUint32(buf[off+32:], uint32(e.Mods))
	case ResizeEvent:
		putHeader(buf, off, KindResize, size, e.Time)
		le.PutUint32(buf[off+16:], e.Cols)
		le.PutUint32(buf[off+20:], e.Rows)
	case TickEvent:
		putHeader(buf, off, KindTick, size, e.Time)
	case PasteEvent:
		putHeader(buf, off, KindPaste, size, e.Time)
		le.PutUint32(buf[off+16:], uint32(len(e.Data)))
		copy(buf[off+20:], e.Data)
	case UserEvent:
		putHeader(buf, off, KindUser, size, e.Time)
		le.PutUint32(buf[off+16:], e.Tag)
		le.PutUint32(buf[off+20:], uint32(len(e.Payload)))
		copy(buf[off+24:], e.Payload)
	}
	return off + size
}

// DecodeBatch decodes one event batch. Any structural problem is
// rejected with a *DecodeError naming the offending offset; records of
// unknown kinds are skipped by their declared size.
func DecodeBatch(buf []byte) (*Batch, error) {
	if len(buf) < batchHeaderSize {
		return nil, decodeErrorf(0, "batch header truncated: %d bytes", len(buf))
	}
	if m := le.Uint32(buf[0:]); m != BatchMagic {
		return nil, decodeErrorf(0, "bad batch magic 0x%08x", m)
	}
	if v := le.Uint32(buf[4:]); v != BatchVersion {
		return nil, decodeErrorf(4, "unsupported batch version %d", v)
	}
	total := int(le.Uint32(buf[8:]))
	if total < batchHeaderSize || total > len(buf) {
		return nil, decodeErrorf(8, "declared total size %d outside buffer of %d bytes", total, len(buf))
	}
	count := int(le.Uint32(buf[12:]))
	b := &Batch{Flags: le.Uint32(buf[16:]), Dropped: le.Uint32(buf[20:])}

	off := batchHeaderSize
	for i := 0; i < count; i++ {
		if off+recordHeaderSize > total {
			return nil, decodeErrorf(off, "record %d header truncated", i)
		}
		kind := EventKind(le.Uint32(buf[off:]))
		size := int(le.Uint32(buf[off+4:]))
		timeMs := le.Uint32(buf[off+8:])
		switch {
		case size < recordHeaderSize:
			return nil, decodeErrorf(off+4, "record size %d below header size", size)
		case size%4 != 0:
			return nil, decodeErrorf(off+4, "record size %d unaligned", size)
		case off+size > total:
			return nil, decodeErrorf(off+4, "record of %d bytes overruns batch of %d bytes", size, total)
		}
		ev, err := decodeRecord(kind, timeMs, buf[off:off+size], off)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			b.Events = append(b.Events, ev)
		}
		off += size
	}
	if off != total {
		return nil, decodeErrorf(off, "batch total size and record count disagree")
	}
	return b, nil
}

// decodeRecord decodes one record. rec covers the whole record including
// the header; off is its offset in the batch, for error reporting. An
// unknown kind returns (nil, nil).
func decodeRecord(kind EventKind, timeMs uint32, rec []byte, off int) (Event, error) {
	need := func(n int, what string) error {
		if len(rec) < n {
			return decodeErrorf(off, "%s record body truncated", what)
		}
		return nil
	}
	switch kind {
	case KindKey:
		if err := need(28, "key"); err != nil {
			return nil, err
		}
		return KeyEvent{
			Time:   timeMs,
			Code:   KeyCode(le.Uint32(rec[16:])),
			Mods:   Mod(le.Uint32(rec[20:])),
			Action: KeyAction(le.Uint32(rec[24:])),
		}, nil
	case KindText:
		if err := need(20, "text"); err != nil {
			return nil, err
		}
		return TextEvent{Time: timeMs, Rune: rune(le.Uint32(rec[16:]))}, nil
	case KindMouse:
		if err := need(36, "mouse"); err != nil {
			return nil, err
		}
		return MouseEvent{
			Time:    timeMs,
			X:       int32(le.Uint32(rec[16:])),
			Y:       int32(le.Uint32(rec[20:])),
			Buttons: le.Uint32(rec[24:]),
			Action:  MouseAction(le.Uint32(rec[28:])),
			Mods:    Mod(le.Uint32(rec[32:])),
		}, nil
	case KindResize:
		if err := need(24, "resize"); err != nil {
			return nil, err
		}
		return ResizeEvent{Time: timeMs, Cols: le.Uint32(rec[16:]), Rows: le.Uint32(rec[20:])}, nil
	case KindTick:
		return TickEvent{Time: timeMs}, nil
	case KindPaste:
		if err := need(20, "paste"); err != nil {
			return nil, err
		}
		n := le.Uint32(rec[16:])
		if n > uint32(len(rec)-20) {
			return nil, decodeErrorf(off+16, "paste length %d overruns record", n)
		}
		var data []byte
		if n > 0 {
			data = make([]byte, n)
			copy(data, rec[20:20+n])
		}
		return PasteEvent{Time: timeMs, Data: data}, nil
	case KindUser:
		if err := need(24, "user"); err != nil {
			return nil, err
		}
		n := le.Uint32(rec[20:])
		if n > uint32(len(rec)-24) {
			return nil, decodeErrorf(off+20, "user payload length %d overruns record", n)
		}
		var payload []byte
		if n > 0 {
			payload = make([]byte, n)
			copy(payload, rec[24:24+n])
		}
		return UserEvent{Time: timeMs, Tag: le.Uint32(rec[16:]), Payload: payload}, nil
	}
	return nil, nil
}
