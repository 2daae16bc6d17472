package dicom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jpfielding/dicomview.go/pkg/dicom/tag"
)

// ImageMetadata is a flat snapshot of the header fields shown next to a
// preview. Absent tags leave text fields empty and numeric fields zero.
type ImageMetadata struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	WindowCenter float64 `json:"windowCenter"`
	WindowWidth  float64 `json:"windowWidth"`

	StudyDate          string `json:"studyDate"`
	StudyTime          string `json:"studyTime"`
	SeriesDescription  string `json:"seriesDescription"`
	Institution        string `json:"institution"`
	PatientID          string `json:"patientId"`
	PatientName        string `json:"patientName"`
	Modality           string `json:"modality"`
	StudyInstanceUID   string `json:"studyInstanceUid"`
	TransferSyntaxName string `json:"transferSyntaxName"`

	EchoTime               float64 `json:"echoTime"`
	RepetitionTime         float64 `json:"repetitionTime"`
	SliceLocation          float64 `json:"sliceLocation"`
	SliceThickness         float64 `json:"sliceThickness"`
	PixelSpacingX          float64 `json:"pixelSpacingX"`
	PixelSpacingY          float64 `json:"pixelSpacingY"`
	OrientationDescription string  `json:"orientationDescription"`

	Rows                      int    `json:"rows"`
	Columns                   int    `json:"columns"`
	BitsAllocated             int    `json:"bitsAllocated"`
	PixelRepresentation       int    `json:"pixelRepresentation"`
	PhotometricInterpretation string `json:"photometricInterpretation"`
	NumberOfFrames            int    `json:"numberOfFrames"`
	SOPInstanceUID            string `json:"sopInstanceUid"`
	SeriesInstanceUID         string `json:"seriesInstanceUid"`
	Compressed                bool   `json:"compressed"`
}

// Project builds the metadata record for a dataset. px may be nil, in which
// case geometry and window come from the dataset alone.
func Project(ds *Dataset, px *PixelSamples) ImageMetadata {
	info := GetPixelInfo(ds)
	syntax := GetTransferSyntax(ds)

	md := ImageMetadata{
		Width:  info.Columns,
		Height: info.Rows,

		StudyDate:          text(ds, tag.StudyDate),
		StudyTime:          text(ds, tag.StudyTime),
		SeriesDescription:  text(ds, tag.SeriesDescription),
		Institution:        text(ds, tag.InstitutionName),
		PatientID:          text(ds, tag.PatientID),
		PatientName:        text(ds, tag.PatientName),
		Modality:           text(ds, tag.Modality),
		StudyInstanceUID:   text(ds, tag.StudyInstanceUID),
		TransferSyntaxName: syntax.Name(),

		EchoTime:       number(ds, tag.EchoTime),
		RepetitionTime: number(ds, tag.RepetitionTime),
		SliceLocation:  number(ds, tag.SliceLocation),
		SliceThickness: number(ds, tag.SliceThickness),

		OrientationDescription: Orientation(ds),

		Rows:                      info.Rows,
		Columns:                   info.Columns,
		BitsAllocated:             info.BitsAllocated,
		PixelRepresentation:       info.PixelRepresentation,
		PhotometricInterpretation: info.Photometric,
		NumberOfFrames:            info.NumberOfFrames,
		SOPInstanceUID:            text(ds, tag.SOPInstanceUID),
		SeriesInstanceUID:         text(ds, tag.SeriesInstanceUID),
		Compressed:                syntax.IsEncapsulated(),
	}
	md.PixelSpacingX, md.PixelSpacingY = PixelSpacing(ds)

	if px != nil {
		md.Width, md.Height = px.Width, px.Height
		md.WindowCenter, md.WindowWidth = px.WindowCenter, px.WindowWidth
	} else {
		md.WindowCenter, md.WindowWidth = GetWindow(ds)
	}
	return md
}

func text(ds *Dataset, t Tag) string {
	if s, ok := ds.GetString(t); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func number(ds *Dataset, t Tag) float64 {
	if f, ok := ds.GetFloat(t); ok {
		return f
	}
	return 0
}

// PixelSpacing returns the row (X) and column (Y) spacing in mm, zero when
// absent or short
func PixelSpacing(ds *Dataset) (x, y float64) {
	fs, ok := ds.GetFloats(tag.PixelSpacing)
	if !ok || len(fs) < 2 {
		return 0, 0
	}
	return fs[0], fs[1]
}

// Orientation describes Image Orientation (Patient) as two in-plane angles:
// the row direction against the L-R axis and the column direction against
// the S-I axis. Empty when the tag is absent or has fewer than six values.
func Orientation(ds *Dataset) string {
	v, ok := ds.GetFloats(tag.ImageOrientationPatient)
	if !ok || len(v) < 6 {
		return ""
	}
	lr := roundAngle(math.Atan2(v[1], v[0]))
	si := roundAngle(math.Atan2(v[5], v[4]))
	return fmt.Sprintf("L-R: %s°, S-I: %s°", formatAngle(lr), formatAngle(si))
}

// roundAngle converts radians to degrees rounded half to even at 2 decimals
func roundAngle(rad float64) float64 {
	return math.RoundToEven(rad*180/math.Pi*100) / 100
}

func formatAngle(deg float64) string {
	if deg == 0 {
		deg = 0 // drop negative zero
	}
	s := strconv.FormatFloat(deg, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// ParseDate parses a DICOM DA value (YYYYMMDD)
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 8 || !digits(s) {
		return time.Time{}, false
	}
	d, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseTime parses a DICOM TM value (HHMMSS with an optional fraction)
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if len(whole) != 6 || !digits(whole) {
		return time.Time{}, false
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 6 || !digits(frac)) {
		return time.Time{}, false
	}
	t, err := time.Parse("150405", whole)
	if err != nil {
		return time.Time{}, false
	}
	if hasFrac {
		n, _ := strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
		t = t.Add(time.Duration(n))
	}
	return t, true
}

func digits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FormattedStudyDate returns the study date as yyyy-mm-dd, or the raw value
// when it does not parse
func (md ImageMetadata) FormattedStudyDate() string {
	if d, ok := ParseDate(md.StudyDate); ok {
		return d.Format("2006-01-02")
	}
	return md.StudyDate
}

// FormattedStudyTime returns the study time as HH:MM:SS, or the raw value
func (md ImageMetadata) FormattedStudyTime() string {
	if t, ok := ParseTime(md.StudyTime); ok {
		return t.Format("15:04:05")
	}
	return md.StudyTime
}

// FormattedTransferSyntax appends the compression state to the syntax name
func (md ImageMetadata) FormattedTransferSyntax() string {
	if md.Compressed {
		return md.TransferSyntaxName + " (compressed)"
	}
	return md.TransferSyntaxName + " (uncompressed)"
}
