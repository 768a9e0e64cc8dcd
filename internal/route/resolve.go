package route

import (
	"errors"
	"fmt"

	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// ActiveRouteID resolves product → subfamily → active route pointer.
// Returns 0 when the product is unknown or its subfamily has no active
// route.
func ActiveRouteID(tx *gorm.DB, productID uint) (uint, error) {
	var p models.Product
	err := tx.Preload("Subfamily").Where("id = ?", productID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("route: resolve product %d: %w", productID, err)
	}
	if p.Subfamily.ActiveRouteID == nil {
		return 0, nil
	}
	return *p.Subfamily.ActiveRouteID, nil
}

// StepByNumber returns the step with the given number on a route, or nil
// when the route has no such step.
func StepByNumber(tx *gorm.DB, routeID uint, stepNumber int) (*models.RouteStep, error) {
	var step models.RouteStep
	err := tx.Where("route_id = ? AND step_number = ?", routeID, stepNumber).First(&step).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("route: step %d of route %d: %w", stepNumber, routeID, err)
	}
	return &step, nil
}

// ListFilters holds optional filters for listing routes.
type ListFilters struct {
	SubfamilyID  uint
	ShowInactive bool
}

// List returns routes with their steps and step locations preloaded,
// newest version first.
func List(tx *gorm.DB, f ListFilters) ([]models.Route, error) {
	q := tx.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_number ASC")
	}).Preload("Steps.Location")
	if f.SubfamilyID != 0 {
		q = q.Where("subfamily_id = ?", f.SubfamilyID)
	}
	if !f.ShowInactive {
		q = q.Where("active = ?", true)
	}
	var routes []models.Route
	if err := q.Order("id DESC").Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("route: list: %w", err)
	}
	return routes, nil
}

// Get returns one route with steps and locations preloaded.
func Get(tx *gorm.DB, routeID uint) (*models.Route, error) {
	var r models.Route
	err := tx.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_number ASC")
	}).Preload("Steps.Location").Where("id = ?", routeID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("route: route %d not found", routeID)
	}
	if err != nil {
		return nil, fmt.Errorf("route: load %d: %w", routeID, err)
	}
	return &r, nil
}
