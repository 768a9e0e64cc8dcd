// Package route maintains route definitions and their ordered step lists,
// and enforces the single-active-version and WIP-safety rules.
package route

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// StepInput is one submitted step. Steps without a location are dropped
// during normalization.
type StepInput struct {
	StepNumber int
	LocationID uint
}

// SaveOpts holds parameters for creating or editing a route. A zero
// RouteID creates a new version for the subfamily; a non-zero RouteID
// edits that route in place.
type SaveOpts struct {
	RouteID     uint
	SubfamilyID uint
	Name        string
	Steps       []StepInput
}

// inFlightStatuses are the WIP states that pin a route against change.
var inFlightStatuses = []string{"ACTIVE", "HOLD"}

// Save creates a new route version or edits an existing route. The whole
// operation is one transaction; any validation failure rolls it back.
//
// Creating a version computes version = max(existing)+100 (100 when the
// subfamily has none), deactivates all sibling versions and inserts the
// new route as active. Editing is blocked while the route is active with
// WIP in flight.
func Save(gdb *gorm.DB, opts SaveOpts) (*models.Route, error) {
	if opts.SubfamilyID == 0 {
		return nil, fmt.Errorf("route: subfamily is required")
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("route: name is required")
	}

	steps := normalizeSteps(opts.Steps)
	if len(steps) == 0 {
		return nil, fmt.Errorf("route: at least one step with a location is required")
	}

	var saved *models.Route
	err := gdb.Transaction(func(tx *gorm.DB) error {
		ok, err := subfamilyChainActive(tx, opts.SubfamilyID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("route: subfamily %d (or its parent) is inactive", opts.SubfamilyID)
		}

		if opts.RouteID == 0 {
			saved, err = create(tx, opts, steps)
		} else {
			saved, err = edit(tx, opts, steps)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func create(tx *gorm.DB, opts SaveOpts, steps []StepInput) (*models.Route, error) {
	current, err := activeRoute(tx, opts.SubfamilyID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		n, err := CountInFlight(tx, current.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("route: cannot create a new version: %d WIP item(s) in flight on the active route", n)
		}
	}

	version, err := nextVersion(tx, opts.SubfamilyID)
	if err != nil {
		return nil, err
	}

	if err := deactivateAll(tx, opts.SubfamilyID); err != nil {
		return nil, err
	}

	r := models.Route{
		SubfamilyID: opts.SubfamilyID,
		Name:        opts.Name,
		Version:     version,
		Active:      true,
	}
	if err := tx.Create(&r).Error; err != nil {
		return nil, fmt.Errorf("route: insert: %w", err)
	}
	if err := setActivePointer(tx, opts.SubfamilyID, &r.ID); err != nil {
		return nil, err
	}
	if err := insertSteps(tx, r.ID, steps); err != nil {
		return nil, err
	}
	return &r, nil
}

func edit(tx *gorm.DB, opts SaveOpts, steps []StepInput) (*models.Route, error) {
	var r models.Route
	err := tx.Where("id = ?", opts.RouteID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("route: route %d not found", opts.RouteID)
	}
	if err != nil {
		return nil, fmt.Errorf("route: load %d: %w", opts.RouteID, err)
	}

	if r.Active {
		n, err := CountInFlight(tx, r.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("route: cannot edit active route %d: %d WIP item(s) in flight", r.ID, n)
		}
	}

	// Moving the route to another subfamily: it arrives inactive, the old
	// subfamily's pointer is cleared, and the version is re-issued in the
	// new subfamily's sequence.
	if r.SubfamilyID != opts.SubfamilyID {
		if r.Active {
			if err := tx.Model(&models.Subfamily{}).
				Where("id = ? AND active_route_id = ?", r.SubfamilyID, r.ID).
				Update("active_route_id", nil).Error; err != nil {
				return nil, fmt.Errorf("route: clear active pointer of subfamily %d: %w", r.SubfamilyID, err)
			}
			r.Active = false
		}
		version, err := nextVersion(tx, opts.SubfamilyID)
		if err != nil {
			return nil, err
		}
		r.Version = version
		r.SubfamilyID = opts.SubfamilyID
	}

	r.Name = opts.Name
	if err := tx.Model(&models.Route{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
		"name":         r.Name,
		"subfamily_id": r.SubfamilyID,
		"active":       r.Active,
		"version":      r.Version,
	}).Error; err != nil {
		return nil, fmt.Errorf("route: update %d: %w", r.ID, err)
	}

	if err := tx.Where("route_id = ?", r.ID).Delete(&models.RouteStep{}).Error; err != nil {
		return nil, fmt.Errorf("route: clear steps of %d: %w", r.ID, err)
	}
	if err := insertSteps(tx, r.ID, steps); err != nil {
		return nil, err
	}
	return &r, nil
}

// normalizeSteps drops steps without a location, orders by submitted step
// number (stable, so an all-zero submission keeps its order), de-duplicates
// by location keeping the first occurrence, and renumbers 1..N.
func normalizeSteps(in []StepInput) []StepInput {
	steps := make([]StepInput, 0, len(in))
	for _, s := range in {
		if s.LocationID != 0 {
			steps = append(steps, s)
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StepNumber < steps[j].StepNumber
	})

	seen := make(map[uint]bool, len(steps))
	out := steps[:0]
	for _, s := range steps {
		if seen[s.LocationID] {
			continue
		}
		seen[s.LocationID] = true
		out = append(out, s)
	}
	for i := range out {
		out[i].StepNumber = i + 1
	}
	return out
}

func insertSteps(tx *gorm.DB, routeID uint, steps []StepInput) error {
	for _, s := range steps {
		rs := models.RouteStep{
			RouteID:    routeID,
			StepNumber: s.StepNumber,
			LocationID: s.LocationID,
		}
		if err := tx.Create(&rs).Error; err != nil {
			return fmt.Errorf("route: insert step %d of route %d: %w", s.StepNumber, routeID, err)
		}
	}
	return nil
}

// subfamilyChainActive reports whether the subfamily and its family and
// area are all active.
func subfamilyChainActive(tx *gorm.DB, subfamilyID uint) (bool, error) {
	var n int64
	err := tx.Table("subfamilies").
		Joins("JOIN families ON families.id = subfamilies.family_id").
		Joins("JOIN areas ON areas.id = families.area_id").
		Where("subfamilies.id = ? AND subfamilies.active = ? AND families.active = ? AND areas.active = ?",
			subfamilyID, true, true, true).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("route: check subfamily %d: %w", subfamilyID, err)
	}
	return n > 0, nil
}

// activeRoute returns the subfamily's active route, or nil when none.
func activeRoute(tx *gorm.DB, subfamilyID uint) (*models.Route, error) {
	var r models.Route
	err := tx.Where("subfamily_id = ? AND active = ?", subfamilyID, true).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("route: active route of subfamily %d: %w", subfamilyID, err)
	}
	return &r, nil
}

// CountInFlight counts WIP items in ACTIVE or HOLD whose current step
// belongs to the route. Such items pin the route against structural change.
func CountInFlight(tx *gorm.DB, routeID uint) (int64, error) {
	var n int64
	err := tx.Table("wip_items").
		Joins("JOIN route_steps ON route_steps.id = wip_items.current_step_id").
		Where("route_steps.route_id = ? AND wip_items.status IN ?", routeID, inFlightStatuses).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("route: count in-flight WIP on route %d: %w", routeID, err)
	}
	return n, nil
}

func nextVersion(tx *gorm.DB, subfamilyID uint) (int, error) {
	var max int
	err := tx.Table("routes").
		Where("subfamily_id = ?", subfamilyID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("route: next version for subfamily %d: %w", subfamilyID, err)
	}
	return max + 100, nil
}

func deactivateAll(tx *gorm.DB, subfamilyID uint) error {
	if err := tx.Model(&models.Route{}).
		Where("subfamily_id = ?", subfamilyID).
		Update("active", false).Error; err != nil {
		return fmt.Errorf("route: deactivate routes of subfamily %d: %w", subfamilyID, err)
	}
	return nil
}

func setActivePointer(tx *gorm.DB, subfamilyID uint, routeID *uint) error {
	if err := tx.Model(&models.Subfamily{}).
		Where("id = ?", subfamilyID).
		Update("active_route_id", routeID).Error; err != nil {
		return fmt.Errorf("route: set active pointer of subfamily %d: %w", subfamilyID, err)
	}
	return nil
}
