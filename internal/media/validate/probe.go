package validate

import (
	"encoding/binary"
	"time"
)

// probeMP4Duration walks the ISO BMFF box structure looking for moov/mvhd
// and reads the presentation duration from it. Best effort: any shape it
// does not understand reports ok=false and the caller treats the file as
// passing the duration check.
func probeMP4Duration(data []byte) (time.Duration, bool) {
	moov, ok := findBox(data, "moov")
	if !ok {
		return 0, false
	}
	mvhd, ok := findBox(moov, "mvhd")
	if !ok || len(mvhd) < 4 {
		return 0, false
	}

	version := mvhd[0]
	switch version {
	case 0:
		// version(1) flags(3) creation(4) modification(4) timescale(4) duration(4)
		if len(mvhd) < 20 {
			return 0, false
		}
		timescale := binary.BigEndian.Uint32(mvhd[12:16])
		duration := binary.BigEndian.Uint32(mvhd[16:20])
		if timescale == 0 {
			return 0, false
		}
		return time.Duration(float64(duration) / float64(timescale) * float64(time.Second)), true
	case 1:
		// version(1) flags(3) creation(8) modification(8) timescale(4) duration(8)
		if len(mvhd) < 32 {
			return 0, false
		}
		timescale := binary.BigEndian.Uint32(mvhd[20:24])
		duration := binary.BigEndian.Uint64(mvhd[24:32])
		if timescale == 0 {
			return 0, false
		}
		return time.Duration(float64(duration) / float64(timescale) * float64(time.Second)), true
	default:
		return 0, false
	}
}

// findBox scans sibling boxes in data and returns the payload of the first
// box with the given four-character type.
func findBox(data []byte, boxType string) ([]byte, bool) {
	off := 0
	for off+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		header := 8
		if size == 1 {
			// 64-bit largesize follows the type.
			if off+16 > len(data) {
				return nil, false
			}
			size64 := binary.BigEndian.Uint64(data[off+8 : off+16])
			if size64 > uint64(len(data)-off) {
				return nil, false
			}
			size = int(size64)
			header = 16
		}
		if size < header || off+size > len(data) {
			return nil, false
		}
		if typ == boxType {
			return data[off+header : off+size], true
		}
		off += size
	}
	return nil, false
}
