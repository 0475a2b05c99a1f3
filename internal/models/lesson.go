package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Lesson represents a bookable class with a finite number of seats.
type Lesson struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Subject   string    `json:"subject" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Location  string    `json:"location" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Price     float64   `json:"price" gorm:"not null" validate:"gte=0"`
	Spaces    int       `json:"spaces" gorm:"not null;check:spaces >= 0" validate:"gte=0"`
	CreatedAt time.Time `json:"-" gorm:"index"`
	UpdatedAt time.Time `json:"-"`

	// Seq is the insertion sequence; it defines natural store order.
	Seq int64 `json:"-" gorm:"index;not null;default:0"`
	// Case-folded copies of Subject and Location used for search and sorting.
	SubjectKey  string `json:"-" gorm:"index"`
	LocationKey string `json:"-" gorm:"index"`
}

// FoldKey returns the case-folded form of s used for matching and ordering.
func FoldKey(s string) string {
	return strings.ToLower(s)
}

// RefreshKeys recomputes the case-folded keys from Subject and Location.
func (l *Lesson) RefreshKeys() {
	l.SubjectKey = FoldKey(l.Subject)
	l.LocationKey = FoldKey(l.Location)
}

// BeforeSave keeps the folded keys in sync on create and save.
func (l *Lesson) BeforeSave(tx *gorm.DB) error {
	l.RefreshKeys()
	return nil
}

// LessonPatch is a partial set of lesson attributes. Nil fields are left untouched.
type LessonPatch struct {
	Subject  *string  `json:"subject" validate:"omitnil,min=1,max=100"`
	Location *string  `json:"location" validate:"omitnil,min=1,max=100"`
	Price    *float64 `json:"price" validate:"omitnil,gte=0"`
	Spaces   *int     `json:"spaces" validate:"omitnil,gte=0"`
}

// Empty reports whether the patch carries no field at all.
func (p LessonPatch) Empty() bool {
	return p.Subject == nil && p.Location == nil && p.Price == nil && p.Spaces == nil
}

// Columns returns the patch as a column → value map, so zero values are
// written too. Text fields carry their folded keys along.
func (p LessonPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 6)
	if p.Subject != nil {
		cols["subject"] = *p.Subject
		cols["subject_key"] = FoldKey(*p.Subject)
	}
	if p.Location != nil {
		cols["location"] = *p.Location
		cols["location_key"] = FoldKey(*p.Location)
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Spaces != nil {
		cols["spaces"] = *p.Spaces
	}
	return cols
}

// Fields lists the JSON names of the attributes the patch sets.
func (p LessonPatch) Fields() []string {
	var fields []string
	if p.Subject != nil {
		fields = append(fields, "subject")
	}
	if p.Location != nil {
		fields = append(fields, "location")
	}
	if p.Price != nil {
		fields = append(fields, "price")
	}
	if p.Spaces != nil {
		fields = append(fields, "spaces")
	}
	return fields
}

// Apply copies the set fields of the patch onto l.
func (p LessonPatch) Apply(l *Lesson) {
	if p.Subject != nil {
		l.Subject = *p.Subject
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Spaces != nil {
		l.Spaces = *p.Spaces
	}
	l.RefreshKeys()
}
