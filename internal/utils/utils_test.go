package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmergencyNumberForCountry(t *testing.T) {
	assert.Equal(t, "112", EmergencyNumberForCountry("NG"))
	assert.Equal(t, "911", EmergencyNumberForCountry("US"))
	assert.Equal(t, "999", EmergencyNumberForCountry("GB"))
	assert.Equal(t, "112", EmergencyNumberForCountry("ng")) // case-insensitive
	assert.Equal(t, "911", EmergencyNumberForCountry("ZZ")) // unknown falls back
	assert.Equal(t, "911", EmergencyNumberForCountry(""))
}

func TestHashPinIsStableAndOpaque(t *testing.T) {
	a := HashPin("4321")
	b := HashPin("4321")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, HashPin("1234"))
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "4321")
}

func TestPhoneHelpers(t *testing.T) {
	assert.True(t, IsValidPhone("+234 803 111 2222"))
	assert.True(t, IsValidPhone("2348031112222"))
	assert.False(t, IsValidPhone("not-a-phone"))

	assert.Equal(t, "+2348031112222", NormalizePhone("+234 (803) 111-2222"))
	assert.Equal(t, "+2348031112222", NormalizePhone("2348031112222"))

	assert.Equal(t, "**********2222", MaskPhone("+2348031112222"))
	assert.Equal(t, "123", MaskPhone("123"))
}
