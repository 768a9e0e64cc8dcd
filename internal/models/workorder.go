package models

import "time"

// WorkOrder is the production lot identity. Created lazily on the first
// scan against an unseen lot number.
type WorkOrder struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	WoNumber  string `gorm:"size:64;uniqueIndex;not null"`
	ProductID uint   `gorm:"index;not null"`
	Status    string `gorm:"size:16;default:OPEN"`
	CreatedAt time.Time

	Product Product `gorm:"foreignKey:ProductID"`
}
