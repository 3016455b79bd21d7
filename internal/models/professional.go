package models

// Specialty is a reference entity managed by receptionists and linked
// to professionals. Names are unique.
type Specialty struct {
	BaseModel
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`

	Professionals []Professional `gorm:"foreignKey:SpecialtyID" json:"-"`
}

// Professional holds the practice profile of a user with the
// PROFESSIONAL role. One user maps to at most one professional record.
type Professional struct {
	BaseModel
	UserID      string `gorm:"size:36;uniqueIndex" json:"userId"`
	SpecialtyID string `gorm:"size:36;index" json:"specialtyId"`
	WorkingDays string `gorm:"size:100" json:"workingDays"` // comma-joined weekday tags, e.g. "MON,WED,FRI"
	StartHour   string `gorm:"size:5" json:"startHour"`     // HH:MM
	EndHour     string `gorm:"size:5" json:"endHour"`       // HH:MM
	Education   string `gorm:"size:255" json:"education,omitempty"`
	Biography   string `gorm:"type:text" json:"biography,omitempty"`
	PhotoURL    string `gorm:"size:255" json:"photoUrl,omitempty"`

	// Relations
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Specialty *Specialty `gorm:"foreignKey:SpecialtyID" json:"specialty,omitempty"`
}
