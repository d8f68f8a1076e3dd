package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.True(t, ValidateEmail("amy@pomona.edu"))
	assert.False(t, ValidateEmail("amy"))
	assert.False(t, ValidateEmail("amy@"))
	assert.Equal(t, "amy@pomona.edu", NormalizeEmail("  Amy@Pomona.EDU "))
}

func TestEduDomain(t *testing.T) {
	assert.Equal(t, "andrew.cmu.edu", EmailDomain("x@Andrew.CMU.edu"))
	assert.True(t, IsEduDomain("pomona.edu"))
	assert.False(t, IsEduDomain("gmail.com"))
	assert.False(t, IsEduDomain(".edu"))
	assert.Equal(t, "", EmailDomain("nodomain"))
}

func TestPassword(t *testing.T) {
	assert.False(t, ValidatePassword("12345"))
	assert.True(t, ValidatePassword("123456"))
}

func TestTimeWindow(t *testing.T) {
	assert.True(t, ValidateTimeWindow(0, 1439))
	assert.True(t, ValidateTimeWindow(600, 600))
	assert.False(t, ValidateTimeWindow(700, 600))
	assert.False(t, ValidateTimeWindow(-1, 10))
	assert.False(t, ValidateTimeWindow(10, 1440))
}

func TestDate(t *testing.T) {
	assert.True(t, ValidateDate("2026-10-15"))
	assert.False(t, ValidateDate("10/15/2026"))
	assert.False(t, ValidateDate("2026-02-30"))
}

func TestStruct(t *testing.T) {
	type body struct {
		Email    string `validate:"required"`
		Earliest int    `validate:"minuteofday"`
		Date     string `validate:"isodate"`
	}

	assert.NoError(t, Struct(body{Email: "a@b.edu", Earliest: 10, Date: "2026-01-01"}))
	assert.EqualError(t, Struct(body{Earliest: 10, Date: "2026-01-01"}), "email is required")
	assert.EqualError(t, Struct(body{Email: "x", Earliest: 2000, Date: "2026-01-01"}), "earliest is invalid")
}
