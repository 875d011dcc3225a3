package core

import (
	"fmt"
	"strings"
	"time"
)

// Dmo is a tracked discipline with one boolean completion judgment per day.
type Dmo struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Active      bool      `json:"active"`
	Timezone    *string   `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Activity is a descriptive checklist entry under a DMO. Activities never
// participate in completion-status computation.
type Activity struct {
	ID        int64     `json:"id"`
	DmoID     int64     `json:"dmo_id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completion is the single record of whether a DMO was done on a date.
type Completion struct {
	ID        int64     `json:"id"`
	DmoID     int64     `json:"dmo_id"`
	Date      Date      `json:"date"`
	Completed bool      `json:"completed"`
	Note      *string   `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DmoCreate carries input for creating a DMO.
type DmoCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Timezone    *string `json:"timezone"`
}

// DmoUpdate carries a partial update: only non-nil fields are applied.
type DmoUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Timezone    *string `json:"timezone"`
	Active      *bool   `json:"active"`
}

// ActivityCreate carries input for creating an Activity within a DMO.
type ActivityCreate struct {
	DmoID int64  `json:"dmo_id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ActivityUpdate carries a partial update: only non-nil fields are applied.
type ActivityUpdate struct {
	Name  *string `json:"name"`
	Order *int    `json:"order"`
}

// Field-validation sentinels. All wrap ErrValidation so callers can match the
// whole family.
var (
	ErrEmptyName     = fmt.Errorf("%w: name cannot be empty or whitespace", ErrValidation)
	ErrNameTooLong   = fmt.Errorf("%w: name too long", ErrValidation)
	ErrNegativeOrder = fmt.Errorf("%w: order must be >= 0", ErrValidation)
)

const (
	maxDmoNameLen      = 255
	maxActivityNameLen = 500
)

func (d *DmoCreate) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return ErrEmptyName
	}
	if len(d.Name) > maxDmoNameLen {
		return ErrNameTooLong
	}
	return nil
}

func (d *DmoUpdate) Validate() error {
	if d.Name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*d.Name)
	if trimmed == "" {
		return ErrEmptyName
	}
	if len(trimmed) > maxDmoNameLen {
		return ErrNameTooLong
	}
	d.Name = &trimmed
	return nil
}

// IsZero reports whether the update carries no field deltas at all.
func (d *DmoUpdate) IsZero() bool {
	return d.Name == nil && d.Description == nil && d.Timezone == nil && d.Active == nil
}

func (a *ActivityCreate) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return ErrEmptyName
	}
	if len(a.Name) > maxActivityNameLen {
		return ErrNameTooLong
	}
	if a.Order < 0 {
		return ErrNegativeOrder
	}
	return nil
}

func (a *ActivityUpdate) Validate() error {
	if a.Name != nil {
		trimmed := strings.TrimSpace(*a.Name)
		if trimmed == "" {
			return ErrEmptyName
		}
		if len(trimmed) > maxActivityNameLen {
			return ErrNameTooLong
		}
		a.Name = &trimmed
	}
	if a.Order != nil && *a.Order < 0 {
		return ErrNegativeOrder
	}
	return nil
}

// IsZero reports whether the update carries no field deltas at all.
func (a *ActivityUpdate) IsZero() bool {
	return a.Name == nil && a.Order == nil
}

// UtcNow returns the current UTC time. Entity timestamps always use UTC.
func UtcNow() time.Time {
	return time.Now().UTC()
}
