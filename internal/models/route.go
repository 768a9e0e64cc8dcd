package models

// Route is one versioned path of stations for a subfamily. Versions are
// issued in increments of 100; at most one route per subfamily is active.
type Route struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SubfamilyID uint   `gorm:"index;not null"`
	Name        string `gorm:"size:128;not null"`
	Version     int    `gorm:"not null"`
	Active      bool   `gorm:"default:false;index"`

	Subfamily Subfamily   `gorm:"foreignKey:SubfamilyID"`
	Steps     []RouteStep `gorm:"foreignKey:RouteID"`
}

// RouteStep is one station within a route. Step numbers are contiguous
// starting at 1; the step list is only ever replaced as a whole.
type RouteStep struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	RouteID    uint `gorm:"index;not null"`
	StepNumber int  `gorm:"not null"`
	LocationID uint `gorm:"not null"`

	Location Location `gorm:"foreignKey:LocationID"`
}
