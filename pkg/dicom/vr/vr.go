// Package vr defines DICOM Value Representations
package vr

// VR represents a DICOM Value Representation
type VR string

// Standard DICOM Value Representations
const (
	AE VR = "AE" // Application Entity (16 bytes max)
	AS VR = "AS" // Age String (4 bytes fixed)
	AT VR = "AT" // Attribute Tag (4 bytes fixed)
	CS VR = "CS" // Code String (16 bytes max)
	DA VR = "DA" // Date (8 bytes fixed)
	DS VR = "DS" // Decimal String (16 bytes max)
	DT VR = "DT" // DateTime (26 bytes max)
	FL VR = "FL" // Floating Point Single (4 bytes fixed)
	FD VR = "FD" // Floating Point Double (8 bytes fixed)
	IS VR = "IS" // Integer String (12 bytes max)
	LO VR = "LO" // Long String (64 bytes max)
	LT VR = "LT" // Long Text (10240 bytes max)
	OB VR = "OB" // Other Byte String
	OD VR = "OD" // Other Double String
	OF VR = "OF" // Other Float String
	OL VR = "OL" // Other Long
	OV VR = "OV" // Other 64-bit Very Long
	OW VR = "OW" // Other Word String
	PN VR = "PN" // Person Name (64 bytes max per component)
	SH VR = "SH" // Short String (16 bytes max)
	SL VR = "SL" // Signed Long (4 bytes fixed)
	SQ VR = "SQ" // Sequence of Items
	SS VR = "SS" // Signed Short (2 bytes fixed)
	ST VR = "ST" // Short Text (1024 bytes max)
	SV VR = "SV" // Signed 64-bit Very Long
	TM VR = "TM" // Time (16 bytes max)
	UC VR = "UC" // Unlimited Characters
	UI VR = "UI" // Unique Identifier (64 bytes max)
	UL VR = "UL" // Unsigned Long (4 bytes fixed)
	UN VR = "UN" // Unknown
	UR VR = "UR" // Universal Resource Identifier
	US VR = "US" // Unsigned Short (2 bytes fixed)
	UT VR = "UT" // Unlimited Text
	UV VR = "UV" // Unsigned 64-bit Very Long
)

// Kind groups VRs by how their values are materialized
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindDecimal
	KindDate
	KindTime
	KindUID
	KindBinary
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindUID:
		return "uid"
	case KindBinary:
		return "binary"
	case KindSequence:
		return "sequence"
	}
	return "unknown"
}

var known = map[VR]Kind{
	AE: KindString, AS: KindString, CS: KindString, LO: KindString, LT: KindString,
	PN: KindString, SH: KindString, ST: KindString, UC: KindString, UR: KindString,
	UT: KindString,
	DA: KindDate, DT: KindDate,
	TM: KindTime,
	UI: KindUID,
	IS: KindInteger, SL: KindInteger, SS: KindInteger, SV: KindInteger,
	UL: KindInteger, US: KindInteger, UV: KindInteger,
	DS: KindDecimal, FL: KindDecimal, FD: KindDecimal,
	AT: KindBinary, OB: KindBinary, OD: KindBinary, OF: KindBinary, OL: KindBinary,
	OV: KindBinary, OW: KindBinary, UN: KindBinary,
	SQ: KindSequence,
}

// Parse validates a two character VR code read from an explicit VR stream
func Parse(code string) (VR, bool) {
	v := VR(code)
	_, ok := known[v]
	return v, ok
}

// Kind returns the value kind for the VR; unknown VRs are treated as binary
func (v VR) Kind() Kind {
	if k, ok := known[v]; ok {
		return k
	}
	return KindBinary
}

// IsLongLength returns true if the VR uses 2 reserved bytes and a 4-byte
// length in explicit VR encoding
func (v VR) IsLongLength() bool {
	switch v {
	case OB, OD, OF, OL, OV, OW, SQ, SV, UC, UN, UR, UT, UV:
		return true
	default:
		return false
	}
}

// IsString returns true if this VR contains string data
func (v VR) IsString() bool {
	switch v.Kind() {
	case KindString, KindDate, KindTime, KindUID:
		return true
	}
	return v == DS || v == IS
}

// IsMultiValued returns true if backslash separates values for this string VR.
// Text VRs (LT, ST, UT, UR) may legitimately contain backslashes.
func (v VR) IsMultiValued() bool {
	switch v {
	case LT, ST, UT, UR:
		return false
	}
	return v.IsString()
}

// IsCharsetSensitive returns true if the Specific Character Set applies to values of this VR
func (v VR) IsCharsetSensitive() bool {
	switch v {
	case SH, LO, ST, LT, PN, UC, UT:
		return true
	}
	return false
}

// IsSequence returns true if this is a sequence VR
func (v VR) IsSequence() bool {
	return v == SQ
}

// ValueSize returns the fixed size in bytes for binary numeric VRs, or 0 for variable
func (v VR) ValueSize() int {
	switch v {
	case SS, US:
		return 2
	case AT, FL, SL, UL:
		return 4
	case FD, SV, UV:
		return 8
	default:
		return 0
	}
}
