package models

import (
	"strings"
	"time"
)

// Category medication category
type Category string

const (
	CategoryDrug       Category = "medicamento"
	CategoryVitamin    Category = "vitamina"
	CategorySupplement Category = "suplemento"
	CategoryOther      Category = "outro"
)

// ParseCategory maps stored and English spellings to a Category, defaulting to other
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "medicamento", "drug", "medication":
		return CategoryDrug
	case "vitamina", "vitamin":
		return CategoryVitamin
	case "suplemento", "supplement":
		return CategorySupplement
	default:
		return CategoryOther
	}
}

// Medication a treatable item owned by a profile (medications table).
// Never physically removed; Active=false is the soft delete.
type Medication struct {
	MedicationID    string    `json:"medication_id" db:"medication_id"`
	ProfileID       string    `json:"profile_id" db:"profile_id"`
	Name            string    `json:"name" db:"name"`
	DoseDescription string    `json:"dose_description" db:"dose_description"`
	Category        Category  `json:"category" db:"category"`
	TakeWithFood    bool      `json:"take_with_food" db:"take_with_food"`
	Active          bool      `json:"active" db:"active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Profile the owner of medications; timezone anchors schedule times
type Profile struct {
	ProfileID string     `json:"profile_id" db:"profile_id"`
	Timezone  string     `json:"timezone" db:"timezone"`
	BirthDate *time.Time `json:"birth_date,omitempty" db:"birth_date"`
}

// Location resolves the profile timezone, falling back to def
func (p *Profile) Location(def *time.Location) *time.Location {
	if p == nil || p.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return def
	}
	return loc
}

// AgeAt full years at t; -1 when unknown
func (p *Profile) AgeAt(t time.Time) int {
	if p == nil || p.BirthDate == nil {
		return -1
	}
	b := *p.BirthDate
	age := t.Year() - b.Year()
	if t.Month() < b.Month() || (t.Month() == b.Month() && t.Day() < b.Day()) {
		age--
	}
	return age
}
