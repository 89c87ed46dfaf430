package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResidentIDCheckDigit_Example(t *testing.T) {
	// 9,0,1,0,1,0,1,2,3,4,5,6 weighted: 18+0+4+0+6+0+8+18+6+12+20+30 = 122
	// 122 mod 11 = 1, (11-1) mod 10 = 0
	d, err := ResidentIDCheckDigit("901010123456")
	require.NoError(t, err)
	assert.Equal(t, 0, d)

	assert.NoError(t, ResidentID(ComposeResidentID("901010", "1234560")))
	assert.ErrorIs(t, ResidentID(ComposeResidentID("901010", "1234567")), ErrResidentIDChecksum)
}

func TestResidentID_AcceptsExactlyOneFinalDigit(t *testing.T) {
	prefixes := []string{"901010123456", "850301234567", "000101400000", "991231299999"}
	for _, p := range prefixes {
		want, err := ResidentIDCheckDigit(p)
		require.NoError(t, err)
		accepted := 0
		for d := 0; d <= 9; d++ {
			id := fmt.Sprintf("%s%d", p, d)
			if ResidentID(id) == nil {
				accepted++
				assert.Equal(t, want, d, "prefix %s", p)
			}
		}
		assert.Equal(t, 1, accepted, "prefix %s", p)
	}
}

func TestResidentID_Deterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.NoError(t, ResidentID("901010-1234560"))
	}
}

func TestResidentID_Format(t *testing.T) {
	cases := []string{"", "12345", "90101012345600", "90101a1234560", "901010--234560"}
	for _, c := range cases {
		assert.ErrorIs(t, ResidentID(c), ErrResidentIDFormat, c)
	}
}

func TestNormalizeResidentID(t *testing.T) {
	assert.Equal(t, "9010101234560", NormalizeResidentID(" 901010-1234560 "))
	assert.Equal(t, "9010101234560", NormalizeResidentID("9010101234560"))
}

func TestPhone(t *testing.T) {
	valid := []string{"010-1234-5678", "011-123-4567", "016-1234-5678", "019-999-0000"}
	for _, p := range valid {
		assert.NoError(t, Phone(p), p)
	}
	invalid := []string{"02-1234-5678", "010-12-5678", "01012345678", "012-1234-5678", "010-1234-56789", ""}
	for _, p := range invalid {
		assert.ErrorIs(t, Phone(p), ErrPhoneFormat, p)
	}
}

func TestLooksLikePhone(t *testing.T) {
	assert.True(t, LooksLikePhone("010-1234-5678"))
	assert.True(t, LooksLikePhone("01012345678"))
	assert.False(t, LooksLikePhone("1985"))
	assert.False(t, LooksLikePhone("kim"))
}

func TestMaskResidentID(t *testing.T) {
	assert.Equal(t, "901010-1******", MaskResidentID("9010101234560"))
	assert.Equal(t, "901010-1******", MaskResidentID("901010-1234560"))
	assert.Equal(t, "******", MaskResidentID("12345"))
	assert.Equal(t, "", MaskResidentID(""))
}
