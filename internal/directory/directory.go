// Package directory resolves devices, products and locations by natural
// key. It is the read-only boundary the tracking engine consumes; catalog
// maintenance happens elsewhere.
package directory

import (
	"errors"
	"fmt"

	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// DeviceLocation is the station a device is fixed at.
type DeviceLocation struct {
	LocationID   uint
	LocationName string
}

// ResolveDevice returns the location of an active device, or nil when the
// device is unknown or inactive.
func ResolveDevice(tx *gorm.DB, deviceID uint) (*DeviceLocation, error) {
	var dev models.Device
	err := tx.Preload("Location").
		Where("id = ? AND active = ?", deviceID, true).
		First(&dev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("directory: resolve device %d: %w", deviceID, err)
	}
	return &DeviceLocation{
		LocationID:   dev.LocationID,
		LocationName: dev.Location.Name,
	}, nil
}

// ResolveProduct returns the ID of an active product by part number, or 0
// when no active product carries that part number.
func ResolveProduct(tx *gorm.DB, partNumber string) (uint, error) {
	var p models.Product
	err := tx.Where("part_number = ? AND active = ?", partNumber, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("directory: resolve product %q: %w", partNumber, err)
	}
	return p.ID, nil
}

// LocationName returns the name of a location, or "" when it does not exist.
func LocationName(tx *gorm.DB, locationID uint) (string, error) {
	var loc models.Location
	err := tx.Where("id = ?", locationID).First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("directory: location %d: %w", locationID, err)
	}
	return loc.Name, nil
}
