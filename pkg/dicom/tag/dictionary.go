package tag

import (
	"strings"

	dcmtag "github.com/suyashkumar/dicom/pkg/tag"

	"github.com/jpfielding/dicomview.go/pkg/dicom/vr"
)

// Info describes a dictionary entry
type Info struct {
	Name string
	VR   vr.VR
}

// dictionary is the local, authoritative table for the tags this module reads.
// It is never mutated after package initialization.
var dictionary = map[Tag]Info{
	FileMetaInformationGroupLength: {"FileMetaInformationGroupLength", vr.UL},
	FileMetaInformationVersion:     {"FileMetaInformationVersion", vr.OB},
	MediaStorageSOPClassUID:        {"MediaStorageSOPClassUID", vr.UI},
	MediaStorageSOPInstanceUID:     {"MediaStorageSOPInstanceUID", vr.UI},
	TransferSyntaxUID:              {"TransferSyntaxUID", vr.UI},
	ImplementationClassUID:         {"ImplementationClassUID", vr.UI},
	ImplementationVersionName:      {"ImplementationVersionName", vr.SH},
	SpecificCharacterSet:           {"SpecificCharacterSet", vr.CS},

	PatientName:      {"PatientName", vr.PN},
	PatientID:        {"PatientID", vr.LO},
	PatientBirthDate: {"PatientBirthDate", vr.DA},
	PatientSex:       {"PatientSex", vr.CS},
	PatientAge:       {"PatientAge", vr.AS},

	StudyDate:        {"StudyDate", vr.DA},
	StudyTime:        {"StudyTime", vr.TM},
	AccessionNumber:  {"AccessionNumber", vr.SH},
	StudyDescription: {"StudyDescription", vr.LO},
	StudyInstanceUID: {"StudyInstanceUID", vr.UI},
	StudyID:          {"StudyID", vr.SH},

	Modality:          {"Modality", vr.CS},
	SeriesInstanceUID: {"SeriesInstanceUID", vr.UI},
	SeriesNumber:      {"SeriesNumber", vr.IS},
	InstanceNumber:    {"InstanceNumber", vr.IS},
	SeriesDescription: {"SeriesDescription", vr.LO},
	SeriesDate:        {"SeriesDate", vr.DA},
	SeriesTime:        {"SeriesTime", vr.TM},

	Manufacturer:          {"Manufacturer", vr.LO},
	InstitutionName:       {"InstitutionName", vr.LO},
	StationName:           {"StationName", vr.SH},
	ManufacturerModelName: {"ManufacturerModelName", vr.LO},

	SOPClassUID:    {"SOPClassUID", vr.UI},
	SOPInstanceUID: {"SOPInstanceUID", vr.UI},
	ImageType:      {"ImageType", vr.CS},
	ContentDate:    {"ContentDate", vr.DA},
	ContentTime:    {"ContentTime", vr.TM},

	SliceThickness:       {"SliceThickness", vr.DS},
	KVP:                  {"KVP", vr.DS},
	RepetitionTime:       {"RepetitionTime", vr.DS},
	EchoTime:             {"EchoTime", vr.DS},
	SpacingBetweenSlices: {"SpacingBetweenSlices", vr.DS},

	ImagePositionPatient:    {"ImagePositionPatient", vr.DS},
	ImageOrientationPatient: {"ImageOrientationPatient", vr.DS},
	FrameOfReferenceUID:     {"FrameOfReferenceUID", vr.UI},
	SliceLocation:           {"SliceLocation", vr.DS},
	ImageComments:           {"ImageComments", vr.LT},
	PixelSpacing:            {"PixelSpacing", vr.DS},

	SamplesPerPixel:           {"SamplesPerPixel", vr.US},
	PhotometricInterpretation: {"PhotometricInterpretation", vr.CS},
	PlanarConfiguration:       {"PlanarConfiguration", vr.US},
	NumberOfFrames:            {"NumberOfFrames", vr.IS},
	Rows:                      {"Rows", vr.US},
	Columns:                   {"Columns", vr.US},
	BitsAllocated:             {"BitsAllocated", vr.US},
	BitsStored:                {"BitsStored", vr.US},
	HighBit:                   {"HighBit", vr.US},
	PixelRepresentation:       {"PixelRepresentation", vr.US},
	SmallestImagePixelValue:   {"SmallestImagePixelValue", vr.US},
	LargestImagePixelValue:    {"LargestImagePixelValue", vr.US},
	PixelPaddingValue:         {"PixelPaddingValue", vr.US},
	PixelData:                 {"PixelData", vr.OW},

	WindowCenter:                 {"WindowCenter", vr.DS},
	WindowWidth:                  {"WindowWidth", vr.DS},
	RescaleIntercept:             {"RescaleIntercept", vr.DS},
	RescaleSlope:                 {"RescaleSlope", vr.DS},
	RescaleType:                  {"RescaleType", vr.LO},
	WindowCenterWidthExplanation: {"WindowCenterWidthExplanation", vr.LO},
	VOILUTFunction:               {"VOILUTFunction", vr.CS},
	VOILUTSequence:               {"VOILUTSequence", vr.SQ},

	ReferencedSOPClassUID:    {"ReferencedSOPClassUID", vr.UI},
	ReferencedSOPInstanceUID: {"ReferencedSOPInstanceUID", vr.UI},
	ReferencedImageSequence:  {"ReferencedImageSequence", vr.SQ},
	ReferencedSeriesSequence: {"ReferencedSeriesSequence", vr.SQ},

	Item:                     {"Item", vr.UN},
	ItemDelimitationItem:     {"ItemDelimitationItem", vr.UN},
	SequenceDelimitationItem: {"SequenceDelimitationItem", vr.UN},
}

// Lookup resolves a tag to its dictionary entry. The local table wins; tags
// outside it fall back to the full standard dictionary. Group length
// elements are always UL.
func Lookup(t Tag) (Info, bool) {
	if info, ok := dictionary[t]; ok {
		return info, true
	}
	if t.IsGroupLength() {
		return Info{Name: "GroupLength", VR: vr.UL}, true
	}
	if t.IsPrivate() {
		return Info{}, false
	}
	std, err := dcmtag.Find(dcmtag.Tag{Group: t.Group, Element: t.Element})
	if err != nil {
		return Info{}, false
	}
	return Info{Name: std.Name, VR: normalizeVR(std.VR)}, true
}

// VROf returns the dictionary VR for a tag, or UN when unknown
func VROf(t Tag) vr.VR {
	if info, ok := Lookup(t); ok {
		return info.VR
	}
	return vr.UN
}

// normalizeVR reduces entries like "US or SS" / "OB or OW" to their first
// candidate, and anything unrecognized to UN
func normalizeVR(s string) vr.VR {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) > 2 {
		s = s[:2]
	}
	if v, ok := vr.Parse(s); ok {
		return v
	}
	return vr.UN
}
