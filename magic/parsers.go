package magic

import (
	"encoding/binary"
	"iter"
)

// view is the concrete SubmatchView both illustrative parsers produce.
type view struct {
	name   string
	offset int
	fields []Field
}

func (v *view) Name() string     { return v.name }
func (v *view) Offset() int      { return v.offset }
func (v *view) Fields() []Field  { return v.fields }

// zipLocalHeaderSignature is the 4-byte marker preceding each zip local
// file header ("PK\x03\x04").
var zipLocalHeaderSignature = [4]byte{'P', 'K', 0x03, 0x04}

// ZipParser walks a zip file's local file headers, yielding one
// SubmatchView per entry. It is illustrative: it does not validate the
// central directory, handle zip64, or follow data descriptors — just
// enough structure to drive the Submatch Debug Driver (§4.6) with a
// multi-item sequence.
type ZipParser struct{}

func (ZipParser) Name() string { return "zip" }

func (ZipParser) Parse(data []byte, _ Result) iter.Seq[SubmatchView] {
	return func(yield func(SubmatchView) bool) {
		offset := 0

		for offset+30 <= len(data) {
			if [4]byte(data[offset:offset+4]) != zipLocalHeaderSignature {
				break
			}

			compressedSize := binary.LittleEndian.Uint32(data[offset+18:])
			uncompressedSize := binary.LittleEndian.Uint32(data[offset+22:])
			nameLen := binary.LittleEndian.Uint16(data[offset+26:])
			extraLen := binary.LittleEndian.Uint16(data[offset+28:])

			nameStart := offset + 30
			nameEnd := nameStart + int(nameLen)
			if nameEnd > len(data) {
				break
			}

			entry := &view{
				name:   "ZipLocalFileHeader",
				offset: offset,
				fields: []Field{
					{Key: "filename", Value: string(data[nameStart:nameEnd])},
					{Key: "compressed_size", Value: int(compressedSize)},
					{Key: "uncompressed_size", Value: int(uncompressedSize)},
				},
			}

			if !yield(entry) {
				return
			}

			offset = nameEnd + int(extraLen) + int(compressedSize)
		}
	}
}

// PDFParser extracts top-level "N 0 obj" markers from a PDF byte stream,
// yielding one SubmatchView per object found. Illustrative: it does not
// parse the object's dictionary/stream body, only locates it.
type PDFParser struct{}

func (PDFParser) Name() string { return "pdf" }

func (PDFParser) Parse(data []byte, _ Result) iter.Seq[SubmatchView] {
	return func(yield func(SubmatchView) bool) {
		const marker = " obj"

		for i := 0; i+len(marker) <= len(data); i++ {
			if string(data[i:i+len(marker)]) != marker {
				continue
			}

			start := i
			for start > 0 && data[start-1] != '\n' && data[start-1] != '\r' {
				start--
			}

			objNum, generation, ok := parseObjHeader(data[start:i])
			if !ok {
				continue
			}

			entry := &view{
				name:   "PDFObject",
				offset: start,
				fields: []Field{
					{Key: "object_number", Value: objNum},
					{Key: "generation", Value: generation},
				},
			}

			if !yield(entry) {
				return
			}
		}
	}
}

// parseObjHeader parses "N G" (object number, generation) preceding an
// " obj" marker.
func parseObjHeader(header []byte) (objNum, generation int, ok bool) {
	fields := splitFields(header)
	if len(fields) != 2 {
		return 0, 0, false
	}

	n, ok1 := parseUint(fields[0])
	g, ok2 := parseUint(fields[1])

	if !ok1 || !ok2 {
		return 0, 0, false
	}

	return n, g, true
}

func splitFields(b []byte) []string {
	var fields []string

	start := -1

	for i, c := range b {
		if c == ' ' || c == '\t' {
			if start >= 0 {
				fields = append(fields, string(b[start:i]))
				start = -1
			}

			continue
		}

		if start < 0 {
			start = i
		}
	}

	if start >= 0 {
		fields = append(fields, string(b[start:]))
	}

	return fields
}

func parseUint(s string) (int, bool) {
	if s == "" {
		return 0, false
	}

	n := 0

	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}

		n = n*10 + int(c-'0')
	}

	return n, true
}
