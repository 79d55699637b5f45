package ledger

import (
	"fmt"
	"sort"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// Reconciler merges the three event sources into one chronologically
// ordered, deduplicated ledger and computes the running balance.
//
// It is a pure function over the snapshot it is given: no I/O, no locking.
type Reconciler struct{}

// shadowKey identifies a canonical movement by the document and item it
// settles. A legacy order line with a matching key is excluded from the
// merge so the transition from inferred to explicit movement records never
// counts one real-world event twice.
type shadowKey struct {
	DocID  id.ID
	ItemID id.ID
	Kind   MovementKind
}

// legacyShadowKinds maps a legacy line kind to the canonical kinds that
// shadow it. Kept as an explicit table so the dedup rule stays a testable
// predicate rather than a side effect of query order.
var legacyShadowKinds = map[MovementKind][]MovementKind{
	KindPurchase:  {KindPurchase},
	KindSale:      {KindSale},
	KindReturnIn:  {KindReturnIn},
	KindReturnOut: {KindReturnOut},
}

// Shadowed reports whether a legacy order line is superseded by a canonical
// movement referencing the same document, item and a matching kind.
func (r Reconciler) Shadowed(legacy LegacyOrderEvent, canonical []MovementEvent) bool {
	index := buildShadowIndex(canonical)
	return shadowed(legacy, index)
}

func buildShadowIndex(canonical []MovementEvent) map[shadowKey]struct{} {
	index := make(map[shadowKey]struct{}, len(canonical))
	for _, e := range canonical {
		index[shadowKey{DocID: e.Ref.ID, ItemID: e.ItemID, Kind: e.Kind}] = struct{}{}
	}
	return index
}

func shadowed(legacy LegacyOrderEvent, index map[shadowKey]struct{}) bool {
	for _, kind := range legacyShadowKinds[legacy.Kind] {
		key := shadowKey{DocID: legacy.DocumentID, ItemID: legacy.ItemID, Kind: kind}
		if _, ok := index[key]; ok {
			return true
		}
	}
	return false
}

// Reconcile merges the raw sources into ledger rows ordered newest-first,
// with running balances computed oldest-first. An empty history yields an
// empty slice.
func (r Reconciler) Reconcile(
	legacy []LegacyOrderEvent,
	permits []PermitEvent,
	canonical []MovementEvent,
	warehouseID *id.ID,
) []LedgerRow {
	rows := make([]LedgerRow, 0, len(legacy)+2*len(permits)+len(canonical))

	index := buildShadowIndex(canonical)
	for _, e := range legacy {
		if shadowed(e, index) {
			continue
		}
		// Same scoping rule as canonical movements: a line with no warehouse
		// is unscoped and belongs to every warehouse view.
		if warehouseID != nil && e.WarehouseID != nil && *e.WarehouseID != *warehouseID {
			continue
		}
		rows = append(rows, normalizeLegacy(e))
	}

	for _, e := range permits {
		rows = append(rows, expandPermit(e, warehouseID)...)
	}

	for _, e := range canonical {
		row, ok := normalizeMovement(e, warehouseID)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}

	// Timestamp alone is not a total order: events from batch postings share
	// one timestamp. The ordinal breaks ties deterministically.
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Ordinal < rows[j].Ordinal
	})

	var balance types.Quantity
	for i := range rows {
		balance += rows[i].InQty - rows[i].OutQty
		rows[i].RunningBalance = balance
	}

	// Newest first for display; balances stay as computed oldest-first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	return rows
}

func normalizeLegacy(e LegacyOrderEvent) LedgerRow {
	row := LedgerRow{
		Date:          e.OccurredAt,
		Kind:          e.Kind,
		KindLabel:     e.Kind.Label(),
		DocumentLabel: e.DocumentNumber,
		WarehouseID:   e.WarehouseID,
		WarehouseName: e.WarehouseName,
		Ordinal:       e.Ordinal,
	}
	if e.Kind.IsOutbound() {
		row.OutQty = e.Quantity
	} else {
		row.InQty = e.Quantity
	}
	return row
}

// expandPermit maps a permit line to zero, one or two ledger rows. In the
// global view a transfer shows its full path: one row out of the source
// warehouse and one into the destination. A scoped view only shows the side
// touching the requested warehouse.
func expandPermit(e PermitEvent, warehouseID *id.ID) []LedgerRow {
	base := LedgerRow{
		Date:            e.OccurredAt,
		DocumentLabel:   e.PermitNumber,
		SourceWarehouse: e.SourceWarehouseName,
		DestWarehouse:   e.DestWarehouseName,
		Ordinal:         e.Ordinal,
	}

	var rows []LedgerRow

	if e.SourceWarehouseID != nil && (warehouseID == nil || *e.SourceWarehouseID == *warehouseID) {
		out := base
		out.Kind = KindTransferOut
		out.KindLabel = KindTransferOut.Label()
		out.OutQty = e.Quantity
		out.WarehouseID = e.SourceWarehouseID
		out.WarehouseName = e.SourceWarehouseName
		rows = append(rows, out)
	}

	if e.DestWarehouseID != nil && (warehouseID == nil || *e.DestWarehouseID == *warehouseID) {
		in := base
		in.Kind = KindTransferIn
		in.KindLabel = KindTransferIn.Label()
		in.InQty = e.Quantity
		in.WarehouseID = e.DestWarehouseID
		in.WarehouseName = e.DestWarehouseName
		rows = append(rows, in)
	}

	return rows
}

// normalizeMovement applies warehouse scoping and the mobile-unit rules to a
// canonical movement. Returns ok=false when the event is excluded from the
// requested view.
func normalizeMovement(e MovementEvent, warehouseID *id.ID) (LedgerRow, bool) {
	if warehouseID != nil {
		inScope := e.WarehouseID == nil || *e.WarehouseID == *warehouseID
		if !inScope {
			return LedgerRow{}, false
		}
		// A mobile-unit sale was already deducted from the warehouse when the
		// vehicle was loaded; showing it in the warehouse view would deduct
		// the stock a second time.
		if e.Ref.Kind == RefVehicleSale {
			return LedgerRow{}, false
		}
	}

	row := LedgerRow{
		Date:          e.OccurredAt,
		Kind:          e.Kind,
		KindLabel:     e.Kind.Label(),
		DocumentLabel: refLabel(e.Ref),
		Description:   e.Description,
		WarehouseID:   e.WarehouseID,
		WarehouseName: e.WarehouseName,
		Ordinal:       e.Ordinal,
	}

	if e.Quantity.IsNegative() {
		row.OutQty = e.Quantity.Neg()
	} else {
		row.InQty = e.Quantity
	}

	// In the global view a mobile-unit sale stays visible for traceability
	// but carries zero quantities: its warehouse-level effect was recorded by
	// the vehicle load at loading time.
	if warehouseID == nil && e.Ref.Kind == RefVehicleSale {
		row.InQty = 0
		row.OutQty = 0
	}

	return row, true
}

func refLabel(ref SourceRef) string {
	label, ok := refLabels[ref.Kind]
	if !ok {
		label = string(ref.Kind)
	}
	if id.IsNil(ref.ID) {
		return label
	}
	return fmt.Sprintf("%s %s", label, shortID(ref.ID))
}

var refLabels = map[SourceRefKind]string{
	RefSaleOrder:       "Sales Order",
	RefPurchaseOrder:   "Purchase Order",
	RefReturn:          "Return",
	RefTransferPermit:  "Transfer Permit",
	RefProductionOrder: "Production Order",
	RefVehicleLoad:     "Vehicle Load",
	RefVehicleSale:     "Vehicle Sale",
	RefManual:          "Manual Entry",
}

func shortID(v id.ID) string {
	s := v.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
