package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SkincareRoutine holds the user's configured AM/PM routine times as
// "H:MM" strings (hour unpadded, minute zero-padded), e.g. "8:00", "10:30".
type SkincareRoutine struct {
	AM string `json:"am" bson:"am,omitempty"`
	PM string `json:"pm" bson:"pm,omitempty"`
}

// RoutineCheckIn tracks per-day completion of the AM and PM routines.
// LastResetDate is a "YYYY-MM-DD" calendar date; if it does not equal today,
// the completion flags are stale and must be reset before use.
type RoutineCheckIn struct {
	LastResetDate string `json:"lastResetDate" bson:"last_reset_date"`
	AMCompleted   bool   `json:"amCompleted" bson:"am_completed"`
	PMCompleted   bool   `json:"pmCompleted" bson:"pm_completed"`
}

// UserProfile is the user document, keyed by the auth identity UID.
// The notification flags mark "already notified today" per slot and are
// reset together with the check-in at the daily boundary.
type UserProfile struct {
	UserID          string          `json:"userId" bson:"user_id"`
	FullName        string          `json:"fullName" bson:"full_name,omitempty"`
	Email           string          `json:"email" bson:"email,omitempty"`
	Gender          string          `json:"gender" bson:"gender,omitempty"`
	SkinType        string          `json:"skinType" bson:"skin_type,omitempty"`
	SkinConcerns    string          `json:"skinConcerns" bson:"skin_concerns,omitempty"`
	Allergies       string          `json:"allergies" bson:"allergies,omitempty"`
	SkincareRoutine SkincareRoutine `json:"skincareRoutine" bson:"skincare_routine"`
	RoutineCheckIn  RoutineCheckIn  `json:"routineCheckIn" bson:"routine_check_in"`
	AMNotification  bool            `json:"amNotification" bson:"am_notification"`
	PMNotification  bool            `json:"pmNotification" bson:"pm_notification"`
	DeviceToken     string          `json:"-" bson:"device_token,omitempty"`
}

// HasRoutine reports whether any routine time is configured.
func (p *UserProfile) HasRoutine() bool {
	return p.SkincareRoutine.AM != "" || p.SkincareRoutine.PM != ""
}

type UpdateProfileRequest struct {
	FullName     *string          `json:"fullName"`
	Gender       *string          `json:"gender"`
	SkinType     *string          `json:"skinType"`
	SkinConcerns *string          `json:"skinConcerns"`
	Allergies    *string          `json:"allergies"`
	Routine      *SkincareRoutine `json:"skincareRoutine"`
	DeviceToken  *string          `json:"deviceToken"`
}

// Validate checks the routine time strings. Empty times are allowed (routine
// unconfigured); non-empty times must parse as "H:MM".
func (r *UpdateProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Routine != nil {
		if r.Routine.AM != "" {
			if err := ValidateClockString(r.Routine.AM); err != nil {
				errors["skincareRoutine.am"] = err.Error()
			}
		}
		if r.Routine.PM != "" {
			if err := ValidateClockString(r.Routine.PM); err != nil {
				errors["skincareRoutine.pm"] = err.Error()
			}
		}
	}
	return errors
}

// ValidateClockString checks an "H:MM" routine time: hour 0-12 without a
// leading zero, minute exactly two digits 00-59.
func ValidateClockString(s string) error {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("time must be in H:MM format")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 12 {
		return fmt.Errorf("hour must be between 0 and 12")
	}
	if len(parts[0]) > 1 && strings.HasPrefix(parts[0], "0") {
		return fmt.Errorf("hour must not be zero-padded")
	}
	if len(parts[1]) != 2 {
		return fmt.Errorf("minute must be two digits")
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("minute must be between 00 and 59")
	}
	return nil
}
