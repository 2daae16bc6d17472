package dicom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupCharset(t *testing.T) {
	assert.Nil(t, lookupCharset(nil))
	assert.Nil(t, lookupCharset([]string{"ISO_IR 999"}))
	assert.NotNil(t, lookupCharset([]string{"ISO_IR 192"}))
	// an empty first value defers to the next term
	assert.NotNil(t, lookupCharset([]string{"", "ISO 2022 IR 87"}))
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "plain", decodeText([]byte("plain"), nil))
	assert.Equal(t, "Ångström", decodeText([]byte("\xc5ngstr\xf6m"), characterSets["ISO_IR 100"]))
	assert.Equal(t, "Привет", decodeText([]byte{0xbf, 0xe0, 0xd8, 0xd2, 0xd5, 0xe2}, characterSets["ISO_IR 144"]))
	assert.Equal(t, "日本", decodeText([]byte{0x93, 0xfa, 0x96, 0x7b}, characterSets["ISO_IR 13"]))
}
