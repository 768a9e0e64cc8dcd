package wip

import (
	"testing"

	"github.com/zamorano/wiptrack/internal/models"
	"gorm.io/gorm"
)

// seedProduct creates the minimal catalog chain for one part number.
func seedProduct(t *testing.T, gdb *gorm.DB, partNumber string) models.Product {
	t.Helper()
	area := models.Area{Name: "A-" + partNumber, Active: true}
	gdb.Create(&area)
	fam := models.Family{AreaID: area.ID, Name: "F-" + partNumber, Active: true}
	gdb.Create(&fam)
	sf := models.Subfamily{FamilyID: fam.ID, Name: "SF-" + partNumber, Active: true}
	gdb.Create(&sf)
	p := models.Product{SubfamilyID: sf.ID, PartNumber: partNumber, Active: true}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func seedDevice(t *testing.T, gdb *gorm.DB, locationName string) models.Device {
	t.Helper()
	loc := models.Location{Name: locationName, Active: true}
	gdb.Create(&loc)
	dev := models.Device{LocationID: loc.ID, Name: "dev-" + locationName, Active: true}
	if err := gdb.Create(&dev).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}
	return dev
}

// seedWip creates a product, work order, route and ACTIVE WIP item.
func seedWip(t *testing.T, gdb *gorm.DB, lot, partNumber string) (models.Product, models.WorkOrder, *models.WipItem) {
	t.Helper()
	p := seedProduct(t, gdb, partNumber)
	r := seedRoute(t, gdb, p.SubfamilyID, "RW-"+lot+"-A", "RW-"+lot+"-B")
	wo := seedWorkOrder(t, gdb, lot, p.ID)
	item, err := GetOrCreate(gdb, wo.ID, r.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	return p, wo, item
}

func TestStartRework_ActiveToHold(t *testing.T) {
	gdb := testDB(t)
	_, wo, item := seedWip(t, gdb, "LOT-1", "P1")

	res, err := StartRework(gdb, StartReworkOpts{
		Lot: "LOT-1", PartNumber: "P1", ActorID: 7, DeviceID: 3,
		LocationID: 1, Qty: 50, Reason: "visual defect",
	})
	if err != nil {
		t.Fatalf("StartRework: %v", err)
	}
	if !res.Ok || res.Status != StatusHold {
		t.Errorf("result = %+v, want ok HOLD", res)
	}

	got, _ := Find(gdb, wo.ID, false)
	if got.Status != string(StatusHold) {
		t.Errorf("stored status = %q, want HOLD", got.Status)
	}

	var logs []models.ReworkLog
	gdb.Where("wip_item_id = ?", item.ID).Find(&logs)
	if len(logs) != 1 {
		t.Fatalf("rework logs = %d, want 1", len(logs))
	}
	if logs[0].Reason != "visual defect" || logs[0].Qty != 50 || logs[0].ActorID != 7 {
		t.Errorf("log = %+v", logs[0])
	}
}

func TestStartRework_ProductNotFound(t *testing.T) {
	gdb := testDB(t)
	res, err := StartRework(gdb, StartReworkOpts{Lot: "LOT-1", PartNumber: "NOPE"})
	if err != nil {
		t.Fatalf("StartRework: %v", err)
	}
	if res.Ok || res.Reason != ReasonProductNotFound {
		t.Errorf("result = %+v, want PRODUCT_NOT_FOUND", res)
	}
}

func TestStartRework_WorkOrderNotFound(t *testing.T) {
	gdb := testDB(t)
	seedProduct(t, gdb, "P1")
	res, err := StartRework(gdb, StartReworkOpts{Lot: "LOT-MISSING", PartNumber: "P1"})
	if err != nil {
		t.Fatalf("StartRework: %v", err)
	}
	if res.Ok || res.Reason != ReasonWoNotFound {
		t.Errorf("result = %+v, want WO_NOT_FOUND", res)
	}
}

func TestStartRework_WipNotFound(t *testing.T) {
	gdb := testDB(t)
	p := seedProduct(t, gdb, "P1")
	seedWorkOrder(t, gdb, "LOT-1", p.ID)
	res, err := StartRework(gdb, StartReworkOpts{Lot: "LOT-1", PartNumber: "P1"})
	if err != nil {
		t.Fatalf("StartRework: %v", err)
	}
	if res.Ok || res.Reason != ReasonWipNotFound {
		t.Errorf("result = %+v, want WIP_NOT_FOUND", res)
	}
}

func TestStartRework_ClosedRejected(t *testing.T) {
	gdb := testDB(t)
	_, _, item := seedWip(t, gdb, "LOT-1", "P1")
	if err := SetStatus(gdb, item.ID, StatusFinished); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	res, err := StartRework(gdb, StartReworkOpts{Lot: "LOT-1", PartNumber: "P1"})
	if err != nil {
		t.Fatalf("StartRework: %v", err)
	}
	if res.Ok || res.Reason != ReasonWipClosed {
		t.Errorf("result = %+v, want WIP_CLOSED", res)
	}
	if res.Status != StatusFinished {
		t.Errorf("status = %s, want FINISHED", res.Status)
	}
}

func TestReleaseRework_HoldToActive(t *testing.T) {
	gdb := testDB(t)
	_, wo, item := seedWip(t, gdb, "LOT-1", "P1")
	stepBefore := item.CurrentStepID
	if err := SetStatus(gdb, item.ID, StatusHold); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	res, err := ReleaseRework(gdb, "LOT-1", "P1")
	if err != nil {
		t.Fatalf("ReleaseRework: %v", err)
	}
	if !res.Ok || res.Status != StatusActive {
		t.Errorf("result = %+v, want ok ACTIVE", res)
	}

	got, _ := Find(gdb, wo.ID, false)
	if got.Status != string(StatusActive) {
		t.Errorf("stored status = %q", got.Status)
	}
	if got.CurrentStepID != stepBefore {
		t.Errorf("CurrentStepID changed from %d to %d; release must not move the item", stepBefore, got.CurrentStepID)
	}
}

func TestReleaseRework_NotOnHoldNoOp(t *testing.T) {
	gdb := testDB(t)
	seedWip(t, gdb, "LOT-1", "P1")

	res, err := ReleaseRework(gdb, "LOT-1", "P1")
	if err != nil {
		t.Fatalf("ReleaseRework: %v", err)
	}
	if !res.Ok || res.Status != StatusActive {
		t.Errorf("result = %+v, want ok ACTIVE (no-op)", res)
	}
}

func TestReleaseRework_ClosedRejected(t *testing.T) {
	gdb := testDB(t)
	_, _, item := seedWip(t, gdb, "LOT-1", "P1")
	SetStatus(gdb, item.ID, StatusScrapped)

	res, err := ReleaseRework(gdb, "LOT-1", "P1")
	if err != nil {
		t.Fatalf("ReleaseRework: %v", err)
	}
	if res.Ok || res.Reason != ReasonWipClosed {
		t.Errorf("result = %+v, want WIP_CLOSED", res)
	}
}

func TestCancel_ActiveToScrapped(t *testing.T) {
	gdb := testDB(t)
	_, wo, item := seedWip(t, gdb, "LOT-1", "P1")
	dev := seedDevice(t, gdb, "CancelStation")

	res, err := Cancel(gdb, CancelOpts{
		Lot: "LOT-1", PartNumber: "P1", ActorID: 2, DeviceID: dev.ID, Reason: "customer return",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !res.Ok || res.Status != StatusScrapped {
		t.Errorf("result = %+v, want ok SCRAPPED", res)
	}

	got, _ := Find(gdb, wo.ID, false)
	if got.Status != string(StatusScrapped) {
		t.Errorf("stored status = %q", got.Status)
	}

	var events []models.ScanEvent
	gdb.Where("wip_item_id = ? AND kind = ?", item.ID, EventManual).Find(&events)
	if len(events) != 1 {
		t.Errorf("MANUAL events = %d, want 1", len(events))
	}
	if len(events) == 1 && events[0].RouteStepID != item.CurrentStepID {
		t.Errorf("MANUAL event step = %d, want current step %d", events[0].RouteStepID, item.CurrentStepID)
	}
}

func TestCancel_HoldToScrapped(t *testing.T) {
	gdb := testDB(t)
	_, _, item := seedWip(t, gdb, "LOT-1", "P1")
	dev := seedDevice(t, gdb, "CancelStation")
	SetStatus(gdb, item.ID, StatusHold)

	res, err := Cancel(gdb, CancelOpts{Lot: "LOT-1", PartNumber: "P1", DeviceID: dev.ID})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !res.Ok || res.Status != StatusScrapped {
		t.Errorf("result = %+v, want ok SCRAPPED", res)
	}
}

func TestCancel_ClosedRejected(t *testing.T) {
	gdb := testDB(t)
	_, _, item := seedWip(t, gdb, "LOT-1", "P1")
	dev := seedDevice(t, gdb, "CancelStation")
	SetStatus(gdb, item.ID, StatusFinished)

	res, err := Cancel(gdb, CancelOpts{Lot: "LOT-1", PartNumber: "P1", DeviceID: dev.ID})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.Ok || res.Reason != ReasonWipClosed {
		t.Errorf("result = %+v, want WIP_CLOSED", res)
	}
}

func TestCancel_DeviceInvalid(t *testing.T) {
	gdb := testDB(t)
	seedWip(t, gdb, "LOT-1", "P1")

	res, err := Cancel(gdb, CancelOpts{Lot: "LOT-1", PartNumber: "P1", DeviceID: 999})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.Ok || res.Reason != ReasonDeviceInvalid {
		t.Errorf("result = %+v, want DEVICE_INVALID", res)
	}
}

func TestCancel_WipNotFound(t *testing.T) {
	gdb := testDB(t)
	p := seedProduct(t, gdb, "P1")
	seedWorkOrder(t, gdb, "LOT-1", p.ID)
	dev := seedDevice(t, gdb, "CancelStation")

	res, err := Cancel(gdb, CancelOpts{Lot: "LOT-1", PartNumber: "P1", DeviceID: dev.ID})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.Ok || res.Reason != ReasonWipNotFound {
		t.Errorf("result = %+v, want WIP_NOT_FOUND", res)
	}
}
