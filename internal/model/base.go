package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a zero UUID primary key before insert so rows get their id on
// both Postgres and the SQLite databases used by repository tests.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (c *Company) BeforeCreate(_ *gorm.DB) error       { assignID(&c.ID); return nil }
func (u *User) BeforeCreate(_ *gorm.DB) error          { assignID(&u.ID); return nil }
func (p *Production) BeforeCreate(_ *gorm.DB) error    { assignID(&p.ID); return nil }
func (c *Complaint) BeforeCreate(_ *gorm.DB) error     { assignID(&c.ID); return nil }
func (i *Investigation) BeforeCreate(_ *gorm.DB) error { assignID(&i.ID); return nil }
