// Package testutil builds synthetic evidence images for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// EXIF describes the tags written into a synthetic JPEG. Empty fields are
// omitted.
type EXIF struct {
	DateTimeOriginal string
	Make             string
	Model            string
	Software         string
	// GPS is {degrees, minutes, seconds} per axis; nil omits the GPS block.
	Latitude     *[3]uint32
	LatitudeRef  string
	Longitude    *[3]uint32
	LongitudeRef string
}

// SolidImage returns a w x h image filled with c.
func SolidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// JPEGBytes encodes img as a JPEG, inserting an APP1 EXIF segment when exif
// is non-nil.
func JPEGBytes(t testing.TB, img image.Image, exif *EXIF) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	data := buf.Bytes()
	if exif == nil {
		return data
	}

	payload := append([]byte("Exif\x00\x00"), tiff(*exif)...)
	segment := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(segment[2:], uint16(len(payload)+2))
	segment = append(segment, payload...)

	out := make([]byte, 0, len(data)+len(segment))
	out = append(out, data[:2]...)
	out = append(out, segment...)
	out = append(out, data[2:]...)
	return out
}

// PNGBytes encodes img as a PNG.
func PNGBytes(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes data to name inside a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// WriteJPEG writes a 64x48 JPEG with optional EXIF and returns the path.
func WriteJPEG(t testing.TB, name string, exif *EXIF) string {
	t.Helper()
	return WriteFile(t, name, JPEGBytes(t, SolidImage(64, 48, color.RGBA{R: 120, G: 90, B: 60, A: 255}), exif))
}

// WritePNG writes a 32x32 PNG and returns the path.
func WritePNG(t testing.TB, name string) string {
	t.Helper()
	return WriteFile(t, name, PNGBytes(t, SolidImage(32, 32, color.White)))
}

const (
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	b := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

func longEntry(tag uint16, v uint32) ifdEntry {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return ifdEntry{tag: tag, typ: typeLong, count: 1, data: b}
}

func dmsEntry(tag uint16, dms [3]uint32) ifdEntry {
	b := make([]byte, 24)
	for i, v := range dms {
		binary.LittleEndian.PutUint32(b[i*8:], v)
		binary.LittleEndian.PutUint32(b[i*8+4:], 1)
	}
	return ifdEntry{tag: tag, typ: typeRational, count: 3, data: b}
}

func ifdSize(entries []ifdEntry) uint32 {
	size := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			size += uint32(len(e.data)+1) &^ 1
		}
	}
	return size
}

// encodeIFD lays out entries at offset, with out-of-line values following
// the directory.
func encodeIFD(entries []ifdEntry, offset uint32) []byte {
	dir := make([]byte, 2, ifdSize(entries))
	binary.LittleEndian.PutUint16(dir, uint16(len(entries)))

	var extra []byte
	dataOffset := offset + uint32(2+12*len(entries)+4)
	for _, e := range entries {
		entry := make([]byte, 12)
		binary.LittleEndian.PutUint16(entry[0:], e.tag)
		binary.LittleEndian.PutUint16(entry[2:], e.typ)
		binary.LittleEndian.PutUint32(entry[4:], e.count)
		if len(e.data) <= 4 {
			copy(entry[8:], e.data)
		} else {
			binary.LittleEndian.PutUint32(entry[8:], dataOffset+uint32(len(extra)))
			extra = append(extra, e.data...)
			if len(e.data)%2 == 1 {
				extra = append(extra, 0)
			}
		}
		dir = append(dir, entry...)
	}
	dir = append(dir, 0, 0, 0, 0)
	return append(dir, extra...)
}

func tiff(x EXIF) []byte {
	var ifd0, exifIFD, gpsIFD []ifdEntry

	if x.Make != "" {
		ifd0 = append(ifd0, asciiEntry(0x010F, x.Make))
	}
	if x.Model != "" {
		ifd0 = append(ifd0, asciiEntry(0x0110, x.Model))
	}
	if x.Software != "" {
		ifd0 = append(ifd0, asciiEntry(0x0131, x.Software))
	}
	if x.DateTimeOriginal != "" {
		exifIFD = append(exifIFD, asciiEntry(0x9003, x.DateTimeOriginal))
	}
	if x.Latitude != nil && x.Longitude != nil {
		gpsIFD = []ifdEntry{
			asciiEntry(0x0001, x.LatitudeRef),
			dmsEntry(0x0002, *x.Latitude),
			asciiEntry(0x0003, x.LongitudeRef),
			dmsEntry(0x0004, *x.Longitude),
		}
	}

	// Pointer entries have fixed size, so offsets can be computed up front.
	pointers := 0
	if len(exifIFD) > 0 {
		pointers++
	}
	if len(gpsIFD) > 0 {
		pointers++
	}
	placeholder := append(append([]ifdEntry(nil), ifd0...), make([]ifdEntry, pointers)...)

	ifd0Offset := uint32(8)
	exifOffset := ifd0Offset + ifdSize(placeholder)
	gpsOffset := exifOffset
	if len(exifIFD) > 0 {
		gpsOffset += ifdSize(exifIFD)
	}

	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, longEntry(0x8769, exifOffset))
	}
	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, longEntry(0x8825, gpsOffset))
	}

	out := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	out = append(out, encodeIFD(ifd0, ifd0Offset)...)
	if len(exifIFD) > 0 {
		out = append(out, encodeIFD(exifIFD, exifOffset)...)
	}
	if len(gpsIFD) > 0 {
		out = append(out, encodeIFD(gpsIFD, gpsOffset)...)
	}
	return out
}
