package bom

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/catalog/item"
	"prodplan/internal/domain/ledger"
	"prodplan/internal/domain/reservation"
)

var (
	finishedItem = id.MustParse("018f0000-0000-7000-8000-000000000010")
	rawSteel     = id.MustParse("018f0000-0000-7000-8000-000000000011")
	rawBolts     = id.MustParse("018f0000-0000-7000-8000-000000000012")
	testWh       = id.MustParse("018f0000-0000-7000-8000-0000000000cc")
)

type fakeBOMRepo struct {
	boms           map[id.ID]*BOM
	warehouseStock map[id.ID]types.Quantity // by item id
	deactivated    []id.ID
}

func (f *fakeBOMRepo) GetByID(_ context.Context, bomID id.ID) (*BOM, error) {
	if b, ok := f.boms[bomID]; ok {
		return b, nil
	}
	return nil, apperror.NewNotFound("bom", bomID)
}

func (f *fakeBOMRepo) GetActiveByItem(_ context.Context, itemID id.ID) (*BOM, error) {
	for _, b := range f.boms {
		if b.FinishedItemID == itemID && b.Active {
			return b, nil
		}
	}
	return nil, apperror.NewNotFound("bom", itemID)
}

func (f *fakeBOMRepo) Create(_ context.Context, b *BOM) error {
	if f.boms == nil {
		f.boms = map[id.ID]*BOM{}
	}
	f.boms[b.ID] = b
	return nil
}

func (f *fakeBOMRepo) Update(_ context.Context, b *BOM) error {
	f.boms[b.ID] = b
	return nil
}

func (f *fakeBOMRepo) SaveLines(_ context.Context, _ id.ID, _ []BOMLine) error { return nil }

func (f *fakeBOMRepo) DeactivateSiblings(_ context.Context, itemID, _ id.ID) error {
	f.deactivated = append(f.deactivated, itemID)
	return nil
}

func (f *fakeBOMRepo) GetWarehouseStock(_ context.Context, itemID, _ id.ID) (types.Quantity, bool, error) {
	qty, ok := f.warehouseStock[itemID]
	return qty, ok, nil
}

type fakeItemRepo struct {
	items     map[id.ID]*item.Item
	costWrite map[id.ID]types.Money
}

func (f *fakeItemRepo) GetByID(_ context.Context, itemID id.ID) (*item.Item, error) {
	if it, ok := f.items[itemID]; ok {
		return it, nil
	}
	return nil, apperror.NewNotFound("item", itemID)
}

func (f *fakeItemRepo) GetByIDs(_ context.Context, ids []id.ID) (map[id.ID]*item.Item, error) {
	out := map[id.ID]*item.Item{}
	for _, itemID := range ids {
		if it, ok := f.items[itemID]; ok {
			out[itemID] = it
		}
	}
	return out, nil
}

func (f *fakeItemRepo) ListManufactured(_ context.Context) ([]*item.Item, error) { return nil, nil }

func (f *fakeItemRepo) UpdateUnitCost(_ context.Context, itemID id.ID, cost types.Money) error {
	if f.costWrite == nil {
		f.costWrite = map[id.ID]types.Money{}
	}
	f.costWrite[itemID] = cost
	return nil
}

func (f *fakeItemRepo) UpdateStock(_ context.Context, _ id.ID, _ types.Quantity) error { return nil }

type fakeReservationRepo struct {
	reservations []*reservation.Reservation
}

// OutstandingFor mirrors the repository contract: reservations scoped to the
// requested warehouse plus unscoped (warehouse-less) holds.
func (f *fakeReservationRepo) OutstandingFor(_ context.Context, itemID, warehouseID id.ID) (types.Quantity, error) {
	var total types.Quantity
	for _, r := range f.reservations {
		if r.ItemID != itemID {
			continue
		}
		if r.WarehouseID != nil && *r.WarehouseID != warehouseID {
			continue
		}
		total += r.Outstanding()
	}
	return total, nil
}

func (f *fakeReservationRepo) Create(_ context.Context, _ *reservation.Reservation) error {
	return nil
}

func reserve(itemID id.ID, wh *id.ID, qty float64) *reservation.Reservation {
	return &reservation.Reservation{
		ID:               id.New(),
		ItemID:           itemID,
		WarehouseID:      wh,
		QuantityReserved: types.NewQuantityFromFloat64(qty),
		Status:           reservation.StatusReserved,
	}
}

// fakeMovementSums backs the movement-derived stock resolver.
type fakeMovementSums struct {
	sums map[id.ID]types.Quantity
}

func (f *fakeMovementSums) LegacyOrderEvents(_ context.Context, _ id.ID) ([]ledger.LegacyOrderEvent, error) {
	return nil, nil
}

func (f *fakeMovementSums) PermitEvents(_ context.Context, _ id.ID) ([]ledger.PermitEvent, error) {
	return nil, nil
}

func (f *fakeMovementSums) MovementEvents(_ context.Context, _ id.ID) ([]ledger.MovementEvent, error) {
	return nil, nil
}

func (f *fakeMovementSums) SumMovementsByItem(_ context.Context) (map[id.ID]types.Quantity, error) {
	return f.sums, nil
}

func (f *fakeMovementSums) SumMovements(_ context.Context, itemID, _ id.ID) (types.Quantity, bool, error) {
	sum, ok := f.sums[itemID]
	return sum, ok, nil
}

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *fakeBOMRepo, itemRepo *fakeItemRepo, resRepo *fakeReservationRepo) *Service {
	return newTestServiceWithMovements(repo, itemRepo, resRepo, &fakeMovementSums{})
}

func newTestServiceWithMovements(repo *fakeBOMRepo, itemRepo *fakeItemRepo, resRepo *fakeReservationRepo, moves *fakeMovementSums) *Service {
	resolvers := []StockResolver{
		NewWarehouseBalanceResolver(repo),
		NewMovementSumResolver(moves),
		NewGlobalStockResolver(itemRepo),
	}
	return NewService(repo, itemRepo, resRepo, resolvers, noopTxManager{})
}

func testBOM(active bool) *BOM {
	return &BOM{
		ID:             id.New(),
		FinishedItemID: finishedItem,
		Name:           "Widget v1",
		Active:         active,
		LaborCost:      types.NewMoney(10),
		OverheadCost:   types.NewMoney(5),
		Lines: []BOMLine{
			{
				LineID:          id.New(),
				LineNo:          1,
				RawItemID:       rawSteel,
				QuantityPerUnit: types.NewQuantityFromFloat64(2),
				WastePercent:    decimal.NewFromInt(10),
			},
		},
	}
}

func steelItem(stock float64) *item.Item {
	return &item.Item{
		ID: rawSteel, Code: "STL-01", Name: "Steel Sheet", Unit: "kg",
		Stock:    types.NewQuantityFromFloat64(stock),
		UnitCost: types.NewMoney(3),
	}
}

func TestGetUnitCostRollup(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{b.ID: b}}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(100)}}
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	cost, err := svc.GetUnitCost(context.Background(), b.ID)
	require.NoError(t, err)

	// 10 + 5 + (2 x 1.10 x 3) = 21.6
	assert.True(t, cost.Equal(types.MustMoney("21.6")), "got %s", cost)

	// Active BOM: derived cost is cached on the finished item.
	require.Contains(t, itemRepo.costWrite, finishedItem)
	assert.True(t, itemRepo.costWrite[finishedItem].Equal(types.MustMoney("21.6")))
}

func TestGetUnitCostInactiveBOMDoesNotTouchItem(t *testing.T) {
	b := testBOM(false)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{b.ID: b}}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(100)}}
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	cost, err := svc.GetUnitCost(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.MustMoney("21.6")))
	assert.Empty(t, itemRepo.costWrite)
}

func TestGetUnitCostMissingRawItemCostsZero(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{b.ID: b}}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{}} // raw item unknown
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	cost, err := svc.GetUnitCost(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.NewMoney(15)), "labor+overhead only, got %s", cost)
}

func TestGetUnitCostUnknownBOM(t *testing.T) {
	svc := newTestService(&fakeBOMRepo{}, &fakeItemRepo{}, &fakeReservationRepo{})
	_, err := svc.GetUnitCost(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestComputeRequirementsInvalidTargetQuantity(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{b.ID: b}}
	svc := newTestService(repo, &fakeItemRepo{}, &fakeReservationRepo{})

	_, err := svc.ComputeRequirements(context.Background(), b.ID, 0, nil)
	assert.True(t, apperror.IsInvalidInput(err))

	_, err = svc.ComputeRequirements(context.Background(), b.ID, types.NewQuantityFromFloat64(-1), nil)
	assert.True(t, apperror.IsInvalidInput(err))
}

func TestComputeRequirementsGlobalView(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{b.ID: b}}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(100)}}
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	res, err := svc.ComputeRequirements(context.Background(), b.ID, types.NewQuantityFromFloat64(10), nil)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)

	line := res.Lines[0]
	// 2 x 1.10 x 10 = 22 required, 100 available.
	assert.Equal(t, types.NewQuantityFromFloat64(22), line.TotalRequired)
	assert.Equal(t, types.NewQuantityFromFloat64(100), line.Available)
	assert.False(t, line.HasShortage)
	assert.False(t, res.HasShortage)
	// 22 x 3 = 66
	assert.True(t, res.TotalMaterialCost.Equal(types.NewMoney(66)), "got %s", res.TotalMaterialCost)
}

func TestComputeRequirementsWarehouseChainAndReservations(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{
		boms:           map[id.ID]*BOM{b.ID: b},
		warehouseStock: map[id.ID]types.Quantity{rawSteel: types.NewQuantityFromFloat64(30)},
	}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(100)}}
	resRepo := &fakeReservationRepo{reservations: []*reservation.Reservation{
		reserve(rawSteel, &testWh, 12),
	}}
	svc := newTestService(repo, itemRepo, resRepo)

	res, err := svc.ComputeRequirements(context.Background(), b.ID, types.NewQuantityFromFloat64(10), &testWh)
	require.NoError(t, err)

	line := res.Lines[0]
	// Explicit warehouse record (30) wins over global stock (100); minus
	// 12 reserved leaves 18 against 22 required.
	assert.Equal(t, types.NewQuantityFromFloat64(18), line.Available)
	assert.Equal(t, types.NewQuantityFromFloat64(4), line.Shortage)
	assert.True(t, line.HasShortage)
	assert.True(t, res.HasShortage)
}

func TestComputeRequirementsCountsUnscopedReservations(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{
		boms:           map[id.ID]*BOM{b.ID: b},
		warehouseStock: map[id.ID]types.Quantity{rawSteel: types.NewQuantityFromFloat64(30)},
	}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(100)}}
	// Production-order holds carry no warehouse; they must still reduce
	// availability in a warehouse-scoped view.
	resRepo := &fakeReservationRepo{reservations: []*reservation.Reservation{
		reserve(rawSteel, nil, 12),
	}}
	svc := newTestService(repo, itemRepo, resRepo)

	res, err := svc.ComputeRequirements(context.Background(), b.ID, types.NewQuantityFromFloat64(10), &testWh)
	require.NoError(t, err)

	line := res.Lines[0]
	// 30 on hand minus the 12 unscoped hold leaves 18 against 22 required.
	assert.Equal(t, types.NewQuantityFromFloat64(18), line.Available)
	assert.Equal(t, types.NewQuantityFromFloat64(4), line.Shortage)
	assert.True(t, line.HasShortage)
}

func TestComputeRequirementsDerivesStockFromMovements(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{b.ID: b}} // no warehouse record
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(100)}}
	moves := &fakeMovementSums{sums: map[id.ID]types.Quantity{
		rawSteel: types.NewQuantityFromFloat64(15),
	}}
	svc := newTestServiceWithMovements(repo, itemRepo, &fakeReservationRepo{}, moves)

	res, err := svc.ComputeRequirements(context.Background(), b.ID, types.NewQuantityFromFloat64(10), &testWh)
	require.NoError(t, err)

	line := res.Lines[0]
	// The movement-derived balance (15) wins over the cached global figure
	// (100) when no explicit warehouse record exists.
	assert.Equal(t, types.NewQuantityFromFloat64(15), line.Available)
	assert.Equal(t, types.NewQuantityFromFloat64(7), line.Shortage)
	assert.True(t, line.HasShortage)
}

func TestComputeRequirementsFallsBackToGlobalStock(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{b.ID: b}} // no warehouse record
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(50)}}
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	res, err := svc.ComputeRequirements(context.Background(), b.ID, types.NewQuantityFromFloat64(10), &testWh)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(50), res.Lines[0].Available)
}

func TestComputeRequirementsShortageWithinEpsilonIsNoShortage(t *testing.T) {
	b := testBOM(true)
	b.Lines[0].WastePercent = decimal.Zero
	b.Lines[0].QuantityPerUnit = types.NewQuantityFromFloat64(1)
	repo := &fakeBOMRepo{
		boms: map[id.ID]*BOM{b.ID: b},
		// Required will be 10.0000; available 9.9995 leaves a 0.0005 deficit.
		warehouseStock: map[id.ID]types.Quantity{rawSteel: types.NewQuantityFromFloat64(9.9995)},
	}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(0)}}
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	res, err := svc.ComputeRequirements(context.Background(), b.ID, types.NewQuantityFromFloat64(10), &testWh)
	require.NoError(t, err)
	assert.False(t, res.Lines[0].HasShortage)
	assert.False(t, res.HasShortage)
}

func TestComputeRequirementsMonotonicInTargetQuantity(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{b.ID: b}}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(10)}}
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	var prevRequired, prevShortage types.Quantity
	for _, target := range []float64{1, 5, 10, 50, 100} {
		res, err := svc.ComputeRequirements(context.Background(), b.ID, types.NewQuantityFromFloat64(target), nil)
		require.NoError(t, err)
		line := res.Lines[0]
		assert.GreaterOrEqual(t, line.TotalRequired, prevRequired)
		assert.GreaterOrEqual(t, line.Shortage, prevShortage)
		prevRequired = line.TotalRequired
		prevShortage = line.Shortage
	}
}

func TestCreateRejectsUnknownRawItem(t *testing.T) {
	b := testBOM(true)
	b.Lines = append(b.Lines, BOMLine{
		LineID:          id.New(),
		RawItemID:       rawBolts, // not in catalog
		QuantityPerUnit: types.NewQuantityFromFloat64(4),
		WastePercent:    decimal.Zero,
	})
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{}}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(10)}}
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	err := svc.Create(context.Background(), b)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeReferentialViolation, appErr.Code)
	assert.Empty(t, repo.boms, "nothing persisted on referential violation")
}

func TestCreateActiveBOMDeactivatesSiblingsAndCachesCost(t *testing.T) {
	b := testBOM(true)
	repo := &fakeBOMRepo{boms: map[id.ID]*BOM{}}
	itemRepo := &fakeItemRepo{items: map[id.ID]*item.Item{rawSteel: steelItem(10)}}
	svc := newTestService(repo, itemRepo, &fakeReservationRepo{})

	require.NoError(t, svc.Create(context.Background(), b))
	assert.Contains(t, repo.boms, b.ID)
	assert.Equal(t, []id.ID{finishedItem}, repo.deactivated)
	assert.True(t, itemRepo.costWrite[finishedItem].Equal(types.MustMoney("21.6")))
}
