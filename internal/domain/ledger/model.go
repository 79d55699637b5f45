// Package ledger reconstructs the ordered movement history of an item
// from three heterogeneous sources and derives its running balance.
package ledger

import (
	"time"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// MovementKind classifies a quantity-changing event. Closed set.
type MovementKind string

const (
	KindPurchase          MovementKind = "purchase"
	KindSale              MovementKind = "sale"
	KindReturnIn          MovementKind = "return_in"
	KindReturnOut         MovementKind = "return_out"
	KindProductionConsume MovementKind = "production_consume"
	KindProductionOutput  MovementKind = "production_output"
	KindAdjustment        MovementKind = "adjustment"
	KindTransferIn        MovementKind = "transfer_in"
	KindTransferOut       MovementKind = "transfer_out"
	KindOpeningBalance    MovementKind = "opening_balance"
	KindScrap             MovementKind = "scrap"
)

// IsInbound reports whether the kind increases stock. Adjustments are
// excluded here: their direction comes from the sign of the delta.
func (k MovementKind) IsInbound() bool {
	switch k {
	case KindPurchase, KindReturnIn, KindTransferIn, KindProductionOutput, KindOpeningBalance:
		return true
	}
	return false
}

// IsOutbound reports whether the kind decreases stock.
func (k MovementKind) IsOutbound() bool {
	switch k {
	case KindSale, KindReturnOut, KindTransferOut, KindProductionConsume, KindScrap:
		return true
	}
	return false
}

// Label returns the display label for the kind.
func (k MovementKind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

var kindLabels = map[MovementKind]string{
	KindPurchase:          "Purchase",
	KindSale:              "Sale",
	KindReturnIn:          "Customer Return",
	KindReturnOut:         "Supplier Return",
	KindProductionConsume: "Production Consumption",
	KindProductionOutput:  "Production Output",
	KindAdjustment:        "Adjustment",
	KindTransferIn:        "Transfer In",
	KindTransferOut:       "Transfer Out",
	KindOpeningBalance:    "Opening Balance",
	KindScrap:             "Scrap",
}

// LocationClass distinguishes fixed warehouses from mobile units
// (delivery vehicles). Mobile-unit sales are already deducted from the
// warehouse at load time, so they must not count twice.
type LocationClass string

const (
	LocationWarehouse LocationClass = "warehouse"
	LocationMobile    LocationClass = "mobile_unit"
)

// SourceRefKind identifies the document family a movement originates from.
type SourceRefKind string

const (
	RefSaleOrder       SourceRefKind = "sale_order"
	RefPurchaseOrder   SourceRefKind = "purchase_order"
	RefReturn          SourceRefKind = "return"
	RefTransferPermit  SourceRefKind = "transfer_permit"
	RefProductionOrder SourceRefKind = "production_order"
	RefVehicleLoad     SourceRefKind = "vehicle_load"
	RefVehicleSale     SourceRefKind = "vehicle_sale"
	RefManual          SourceRefKind = "manual"
)

// SourceRef links a movement to the document that produced it.
// Used by the deduplication predicate.
type SourceRef struct {
	Kind SourceRefKind `db:"ref_kind" json:"refKind"`
	ID   id.ID         `db:"ref_id" json:"refId"`
}

// MovementEvent is a row of the canonical append-only movement log.
// Quantity is a signed delta: positive = in, negative = out.
type MovementEvent struct {
	ID            id.ID          `db:"id" json:"id"`
	Ordinal       int64          `db:"ordinal" json:"ordinal"`
	ItemID        id.ID          `db:"item_id" json:"itemId"`
	WarehouseID   *id.ID         `db:"warehouse_id" json:"warehouseId,omitempty"`
	WarehouseName string         `db:"warehouse_name" json:"warehouseName,omitempty"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	Kind          MovementKind   `db:"kind" json:"kind"`
	Ref           SourceRef      `json:"ref"`
	Location      LocationClass  `db:"location_class" json:"locationClass"`
	Description   string         `db:"description" json:"description,omitempty"`
	OccurredAt    time.Time      `db:"occurred_at" json:"occurredAt"`
}

// LegacyOrderEvent is a sale/purchase/return line of a posted document from
// the era before explicit movement records. It is shadowed (skipped) when a
// canonical MovementEvent references the same document and item.
type LegacyOrderEvent struct {
	Ordinal        int64          `db:"ordinal" json:"ordinal"`
	DocumentID     id.ID          `db:"document_id" json:"documentId"`
	DocumentNumber string         `db:"document_number" json:"documentNumber"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	WarehouseID    *id.ID         `db:"warehouse_id" json:"warehouseId,omitempty"`
	WarehouseName  string         `db:"warehouse_name" json:"warehouseName,omitempty"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"` // always positive
	Kind           MovementKind   `db:"kind" json:"kind"`
	OccurredAt     time.Time      `db:"occurred_at" json:"occurredAt"`
}

// PermitKind classifies internal stock permits.
type PermitKind string

const (
	PermitTransfer PermitKind = "transfer" // source and destination warehouse
	PermitReceipt  PermitKind = "receipt"  // destination only
	PermitIssue    PermitKind = "issue"    // source only
)

// PermitEvent is a line item of an internal transfer/receipt/issue permit.
// A transfer touches two warehouses and expands to two ledger rows in the
// global view.
type PermitEvent struct {
	Ordinal             int64          `db:"ordinal" json:"ordinal"`
	PermitID            id.ID          `db:"permit_id" json:"permitId"`
	PermitNumber        string         `db:"permit_number" json:"permitNumber"`
	Kind                PermitKind     `db:"kind" json:"kind"`
	ItemID              id.ID          `db:"item_id" json:"itemId"`
	Quantity            types.Quantity `db:"quantity" json:"quantity"` // always positive
	SourceWarehouseID   *id.ID         `db:"source_warehouse_id" json:"sourceWarehouseId,omitempty"`
	SourceWarehouseName string         `db:"source_warehouse_name" json:"sourceWarehouseName,omitempty"`
	DestWarehouseID     *id.ID         `db:"dest_warehouse_id" json:"destWarehouseId,omitempty"`
	DestWarehouseName   string         `db:"dest_warehouse_name" json:"destWarehouseName,omitempty"`
	OccurredAt          time.Time      `db:"occurred_at" json:"occurredAt"`
}

// LedgerRow is the normalized, display-ready shape shared by all sources.
type LedgerRow struct {
	Date            time.Time      `json:"date"`
	Kind            MovementKind   `json:"kind"`
	KindLabel       string         `json:"kindLabel"`
	DocumentLabel   string         `json:"documentLabel"`
	Description     string         `json:"description,omitempty"`
	InQty           types.Quantity `json:"inQty"`
	OutQty          types.Quantity `json:"outQty"`
	RunningBalance  types.Quantity `json:"runningBalance"`
	WarehouseID     *id.ID         `json:"warehouseId,omitempty"`
	WarehouseName   string         `json:"warehouseName,omitempty"`
	SourceWarehouse string         `json:"sourceWarehouse,omitempty"`
	DestWarehouse   string         `json:"destWarehouse,omitempty"`

	// Ordinal is the tie-break key for same-timestamp events.
	Ordinal int64 `json:"-"`
}
