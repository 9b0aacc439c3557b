package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateClockString(t *testing.T) {
	valid := []string{"0:00", "8:00", "10:30", "12:59", "1:05"}
	for _, s := range valid {
		assert.NoError(t, ValidateClockString(s), s)
	}

	invalid := []string{"", "8", "8:0", "8:000", "08:00", "13:00", "-1:00", "8:60", "8:ab", "x:00"}
	for _, s := range invalid {
		assert.Error(t, ValidateClockString(s), s)
	}
}

func TestUpdateProfileRequestValidate(t *testing.T) {
	ok := UpdateProfileRequest{Routine: &SkincareRoutine{AM: "8:00", PM: "10:30"}}
	assert.Empty(t, ok.Validate())

	// Empty times mean the slot is unconfigured, not invalid.
	empty := UpdateProfileRequest{Routine: &SkincareRoutine{}}
	assert.Empty(t, empty.Validate())

	none := UpdateProfileRequest{}
	assert.Empty(t, none.Validate())

	bad := UpdateProfileRequest{Routine: &SkincareRoutine{AM: "13:00", PM: "9:5"}}
	errs := bad.Validate()
	assert.Contains(t, errs, "skincareRoutine.am")
	assert.Contains(t, errs, "skincareRoutine.pm")
}

func TestHasRoutine(t *testing.T) {
	assert.False(t, (&UserProfile{}).HasRoutine())
	assert.True(t, (&UserProfile{SkincareRoutine: SkincareRoutine{AM: "8:00"}}).HasRoutine())
	assert.True(t, (&UserProfile{SkincareRoutine: SkincareRoutine{PM: "10:00"}}).HasRoutine())
}
