package dicom

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// characterSets maps Specific Character Set (0008,0005) terms to decoders.
// Read-only after init; decoders are created per call so the table is safe
// for concurrent parses.
var characterSets = map[string]encoding.Encoding{
	"ISO_IR 6":        unicode.UTF8,
	"ISO_IR 13":       japanese.ShiftJIS,
	"ISO_IR 100":      charmap.ISO8859_1,
	"ISO_IR 101":      charmap.ISO8859_2,
	"ISO_IR 109":      charmap.ISO8859_3,
	"ISO_IR 110":      charmap.ISO8859_4,
	"ISO_IR 126":      charmap.ISO8859_7,
	"ISO_IR 127":      charmap.ISO8859_6,
	"ISO_IR 138":      charmap.ISO8859_8,
	"ISO_IR 144":      charmap.ISO8859_5,
	"ISO_IR 148":      charmap.ISO8859_9,
	"ISO_IR 166":      charmap.Windows874,
	"ISO_IR 192":      unicode.UTF8,
	"ISO 2022 IR 6":   unicode.UTF8,
	"ISO 2022 IR 13":  japanese.ShiftJIS,
	"ISO 2022 IR 87":  japanese.ISO2022JP,
	"ISO 2022 IR 100": charmap.ISO8859_1,
	"ISO 2022 IR 101": charmap.ISO8859_2,
	"ISO 2022 IR 109": charmap.ISO8859_3,
	"ISO 2022 IR 110": charmap.ISO8859_4,
	"ISO 2022 IR 126": charmap.ISO8859_7,
	"ISO 2022 IR 127": charmap.ISO8859_6,
	"ISO 2022 IR 138": charmap.ISO8859_8,
	"ISO 2022 IR 144": charmap.ISO8859_5,
	"ISO 2022 IR 148": charmap.ISO8859_9,
	"ISO 2022 IR 149": korean.EUCKR,
	"ISO 2022 IR 159": japanese.ISO2022JP,
	"ISO 2022 IR 166": charmap.Windows874,
	"GB18030":         simplifiedchinese.GB18030,
	"GBK":             simplifiedchinese.GBK,
}

// lookupCharset picks the decoder for a Specific Character Set value list.
// The first non-empty term wins; unknown terms return nil (bytes pass through).
func lookupCharset(terms []string) encoding.Encoding {
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		return characterSets[t]
	}
	return nil
}

// decodeText converts raw bytes using enc, falling back to the raw bytes on
// decode failure
func decodeText(raw []byte, enc encoding.Encoding) string {
	if enc == nil {
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
