package models

// Area is the top level of the plant's organizational hierarchy.
type Area struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	Name   string `gorm:"size:64;uniqueIndex;not null"`
	Active bool   `gorm:"default:true"`
}

// Family groups subfamilies within an area.
type Family struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	AreaID uint   `gorm:"index;not null"`
	Name   string `gorm:"size:64;not null"`
	Active bool   `gorm:"default:true"`

	Area Area `gorm:"foreignKey:AreaID"`
}

// Subfamily is the routing unit: every product belongs to exactly one
// subfamily, and the subfamily points at the route version currently
// governing new WIP creation.
type Subfamily struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	FamilyID      uint   `gorm:"index;not null"`
	Name          string `gorm:"size:64;not null"`
	Active        bool   `gorm:"default:true"`
	ActiveRouteID *uint

	Family Family `gorm:"foreignKey:FamilyID"`
}

// Product is a manufacturable part, identified externally by part number.
type Product struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SubfamilyID uint   `gorm:"index;not null"`
	PartNumber  string `gorm:"size:64;uniqueIndex;not null"`
	Name        string `gorm:"size:128"`
	Active      bool   `gorm:"default:true"`

	Subfamily Subfamily `gorm:"foreignKey:SubfamilyID"`
}

// Location is a physical station on the floor.
type Location struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	Name   string `gorm:"size:64;uniqueIndex;not null"`
	Active bool   `gorm:"default:true"`
}

// Device is a scanner fixed at one location. Scans report the device ID;
// the device's location is the station the unit was scanned at.
type Device struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	LocationID uint   `gorm:"index;not null"`
	Name       string `gorm:"size:64;not null"`
	Token      string `gorm:"size:64;uniqueIndex"`
	Active     bool   `gorm:"default:true"`

	Location Location `gorm:"foreignKey:LocationID"`
}
