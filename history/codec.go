package history

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/attunehq/microbench/stats"
)

// Magic opens every encoded history. The trailing digits are the format
// version and must change whenever the layout does.
const Magic = "MBHIST01"

// recordSize is the encoded size of one stats body: total, valid,
// deviation and mean.
const recordSize = 4 + 4 + 8 + 8

var (
	// ErrBadMagic indicates the data is not an encoded history.
	ErrBadMagic = errors.New("missing history magic header")

	// ErrTruncated indicates an entry ran past the end of the data.
	ErrTruncated = errors.New("truncated history entry")
)

// Encode serializes entries in name order:
//
//	| 8 | magic              |
//	| 2 | u16 name length    |
//	| n | UTF-8 name         |
//	| 4 | u32 total samples  |
//	| 4 | u32 valid samples  |
//	| 8 | f64 deviation      |
//	| 8 | f64 mean           |
//
// Everything after the magic repeats per entry. Numbers are big endian.
// Names too long for a u16 length are skipped.
func Encode(entries map[string]stats.RunStats) []byte {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.Grow(len(Magic) + 64*len(entries))
	buf.WriteString(Magic)

	for _, name := range names {
		if len(name) > math.MaxUint16 {
			continue
		}
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(name)))
		buf.WriteString(name)
		buf.Write(encodeRecord(entries[name].Record()))
	}

	return buf.Bytes()
}

// Decode parses data produced by Encode. Entries with an empty name, or
// whose stats fail validation against floor, are dropped silently. A bad
// header or a truncated entry fails the whole decode.
func Decode(data []byte, floor int) (map[string]stats.RunStats, error) {
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, ErrBadMagic
	}
	raw := data[len(Magic):]

	out := make(map[string]stats.RunStats)
	for len(raw) > 0 {
		if len(raw) < 2 {
			return nil, errors.Wrap(ErrTruncated, "name length")
		}
		n := int(binary.BigEndian.Uint16(raw))
		raw = raw[2:]

		if len(raw) < n+recordSize {
			return nil, errors.Wrapf(ErrTruncated, "entry of %d bytes", n+recordSize)
		}
		name := normalizeName(string(raw[:n]))
		rec := decodeRecord(raw[n : n+recordSize])
		raw = raw[n+recordSize:]

		if name == "" {
			continue
		}
		if s, err := rec.Stats(floor); err == nil {
			out[name] = s
		}
	}

	return out, nil
}

func encodeRecord(r stats.Record) []byte {
	out := make([]byte, recordSize)
	binary.BigEndian.PutUint32(out[0:], clampUint32(r.Total))
	binary.BigEndian.PutUint32(out[4:], clampUint32(r.Valid))
	binary.BigEndian.PutUint64(out[8:], math.Float64bits(r.Deviation))
	binary.BigEndian.PutUint64(out[16:], math.Float64bits(r.Mean))
	return out
}

// decodeRecord reads a record body. raw must hold at least recordSize bytes.
func decodeRecord(raw []byte) stats.Record {
	return stats.Record{
		Total:     int(binary.BigEndian.Uint32(raw[0:])),
		Valid:     int(binary.BigEndian.Uint32(raw[4:])),
		Deviation: math.Float64frombits(binary.BigEndian.Uint64(raw[8:])),
		Mean:      math.Float64frombits(binary.BigEndian.Uint64(raw[16:])),
	}
}

func clampUint32(n int) uint32 {
	switch {
	case n < 0:
		return 0
	case uint64(n) > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(n)
	}
}
