package mrp

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/bom"
	"prodplan/internal/domain/catalog/item"
	"prodplan/internal/domain/production"
	"prodplan/internal/domain/reservation"
)

var (
	widgetID  = id.MustParse("018f0000-0000-7000-8000-000000000020")
	gadgetID  = id.MustParse("018f0000-0000-7000-8000-000000000021")
	steelID   = id.MustParse("018f0000-0000-7000-8000-000000000022")
	routingID = id.MustParse("018f0000-0000-7000-8000-000000000023")
)

type fakeMRPRepo struct {
	sales      map[id.ID]types.Quantity
	incoming   map[id.ID]types.Quantity
	stored     []Suggestion
	superseded bool
	orders     []*production.Order
	steps      []production.Step
	routing    []production.RoutingStep
	converted  map[id.ID]id.ID
}

func (f *fakeMRPRepo) OpenSalesDemand(_ context.Context, _ time.Time) (map[id.ID]types.Quantity, error) {
	return f.sales, nil
}

func (f *fakeMRPRepo) IncomingProduction(_ context.Context) (map[id.ID]types.Quantity, error) {
	return f.incoming, nil
}

func (f *fakeMRPRepo) SupersedePending(_ context.Context) error {
	f.superseded = true
	for i := range f.stored {
		if f.stored[i].Status == SuggestionPending {
			f.stored[i].Status = SuggestionSuperseded
		}
	}
	return nil
}

func (f *fakeMRPRepo) InsertSuggestions(_ context.Context, suggestions []Suggestion) error {
	f.stored = append(f.stored, suggestions...)
	return nil
}

func (f *fakeMRPRepo) GetSuggestions(_ context.Context, ids []id.ID) ([]Suggestion, error) {
	var out []Suggestion
	for _, wanted := range ids {
		for _, s := range f.stored {
			if s.ID == wanted {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (f *fakeMRPRepo) MarkConverted(_ context.Context, suggestionID, orderID id.ID) error {
	if f.converted == nil {
		f.converted = map[id.ID]id.ID{}
	}
	f.converted[suggestionID] = orderID
	for i := range f.stored {
		if f.stored[i].ID == suggestionID {
			f.stored[i].Status = SuggestionConverted
		}
	}
	return nil
}

func (f *fakeMRPRepo) RoutingSteps(_ context.Context, _ id.ID) ([]production.RoutingStep, error) {
	return f.routing, nil
}

func (f *fakeMRPRepo) CreateOrder(_ context.Context, order *production.Order) error {
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeMRPRepo) CreateOrderSteps(_ context.Context, steps []production.Step) error {
	f.steps = append(f.steps, steps...)
	return nil
}

type fakeItemRepo struct {
	items []*item.Item
}

func (f *fakeItemRepo) GetByID(_ context.Context, itemID id.ID) (*item.Item, error) {
	for _, it := range f.items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return nil, apperror.NewNotFound("item", itemID)
}

func (f *fakeItemRepo) GetByIDs(_ context.Context, ids []id.ID) (map[id.ID]*item.Item, error) {
	out := map[id.ID]*item.Item{}
	for _, wanted := range ids {
		for _, it := range f.items {
			if it.ID == wanted {
				out[wanted] = it
			}
		}
	}
	return out, nil
}

func (f *fakeItemRepo) ListManufactured(_ context.Context) ([]*item.Item, error) {
	var out []*item.Item
	for _, it := range f.items {
		if it.IsManufactured {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) UpdateUnitCost(_ context.Context, _ id.ID, _ types.Money) error { return nil }

func (f *fakeItemRepo) UpdateStock(_ context.Context, _ id.ID, _ types.Quantity) error { return nil }

type fakeBOMRepo struct {
	active map[id.ID]*bom.BOM // by finished item
}

func (f *fakeBOMRepo) GetByID(_ context.Context, bomID id.ID) (*bom.BOM, error) {
	for _, b := range f.active {
		if b.ID == bomID {
			return b, nil
		}
	}
	return nil, apperror.NewNotFound("bom", bomID)
}

func (f *fakeBOMRepo) GetActiveByItem(_ context.Context, itemID id.ID) (*bom.BOM, error) {
	if b, ok := f.active[itemID]; ok {
		return b, nil
	}
	return nil, apperror.NewNotFound("bom", itemID)
}

func (f *fakeBOMRepo) Create(_ context.Context, _ *bom.BOM) error { return nil }
func (f *fakeBOMRepo) Update(_ context.Context, _ *bom.BOM) error { return nil }
func (f *fakeBOMRepo) SaveLines(_ context.Context, _ id.ID, _ []bom.BOMLine) error {
	return nil
}
func (f *fakeBOMRepo) DeactivateSiblings(_ context.Context, _, _ id.ID) error { return nil }
func (f *fakeBOMRepo) GetWarehouseStock(_ context.Context, _, _ id.ID) (types.Quantity, bool, error) {
	return 0, false, nil
}

type fakeReservationRepo struct {
	created []*reservation.Reservation
}

func (f *fakeReservationRepo) OutstandingFor(_ context.Context, _, _ id.ID) (types.Quantity, error) {
	return 0, nil
}

func (f *fakeReservationRepo) Create(_ context.Context, r *reservation.Reservation) error {
	f.created = append(f.created, r)
	return nil
}

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func widgetBOM() *bom.BOM {
	return &bom.BOM{
		ID:             id.MustParse("018f0000-0000-7000-8000-000000000030"),
		FinishedItemID: widgetID,
		Active:         true,
		LaborCost:      types.NewMoney(10),
		OverheadCost:   types.NewMoney(5),
		Lines: []bom.BOMLine{
			{
				LineID:          id.New(),
				RawItemID:       steelID,
				QuantityPerUnit: qty(2),
				WastePercent:    decimal.NewFromInt(10),
			},
		},
	}
}

func widget(stock, minStock float64, lead int) *item.Item {
	return &item.Item{
		ID: widgetID, Code: "WID-01", Name: "Widget", Unit: "pcs",
		Stock:          qty(stock),
		MinStock:       qty(minStock),
		LeadTimeDays:   lead,
		IsManufactured: true,
	}
}

func newTestService(repo *fakeMRPRepo, items *fakeItemRepo, boms *fakeBOMRepo, res *fakeReservationRepo) *Service {
	return NewService(repo, items, boms, res, noopTxManager{})
}

var targetDate = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func TestCalculateSafetyStockGap(t *testing.T) {
	repo := &fakeMRPRepo{}
	items := &fakeItemRepo{items: []*item.Item{widget(50, 80, 7)}}
	boms := &fakeBOMRepo{active: map[id.ID]*bom.BOM{widgetID: widgetBOM()}}
	svc := newTestService(repo, items, boms, &fakeReservationRepo{})

	reqs, err := svc.Calculate(context.Background(), CalculateOptions{
		TargetDate:             targetDate,
		IncludeOpenSalesOrders: true,
		IncludeSafetyStock:     true,
	})
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	// stock 50 below min 80: gap 30, nothing on hand covers it.
	assert.Equal(t, qty(30), reqs[0].NetRequirement)
	assert.Equal(t, qty(30), reqs[0].SafetyDemand)
	assert.Equal(t, targetDate.AddDate(0, 0, -7), reqs[0].SuggestedStartDate)
}

func TestCalculateIncomingProductionCoversDemand(t *testing.T) {
	repo := &fakeMRPRepo{incoming: map[id.ID]types.Quantity{widgetID: qty(40)}}
	items := &fakeItemRepo{items: []*item.Item{widget(50, 80, 7)}}
	boms := &fakeBOMRepo{active: map[id.ID]*bom.BOM{widgetID: widgetBOM()}}
	svc := newTestService(repo, items, boms, &fakeReservationRepo{})

	reqs, err := svc.Calculate(context.Background(), CalculateOptions{
		TargetDate:         targetDate,
		IncludeSafetyStock: true,
	})
	require.NoError(t, err)

	// 30 demanded, 40 incoming: nothing to plan, item omitted.
	assert.Empty(t, reqs)
}

func TestCalculateSalesDemandRespectsFlag(t *testing.T) {
	repo := &fakeMRPRepo{sales: map[id.ID]types.Quantity{widgetID: qty(100)}}
	items := &fakeItemRepo{items: []*item.Item{widget(90, 0, 3)}}
	boms := &fakeBOMRepo{active: map[id.ID]*bom.BOM{widgetID: widgetBOM()}}
	svc := newTestService(repo, items, boms, &fakeReservationRepo{})

	withSales, err := svc.Calculate(context.Background(), CalculateOptions{
		TargetDate:             targetDate,
		IncludeOpenSalesOrders: true,
	})
	require.NoError(t, err)
	require.Len(t, withSales, 1)
	assert.Equal(t, qty(10), withSales[0].NetRequirement)

	withoutSales, err := svc.Calculate(context.Background(), CalculateOptions{
		TargetDate: targetDate,
	})
	require.NoError(t, err)
	assert.Empty(t, withoutSales)
}

func TestCalculateSkipsItemsWithoutActiveBOM(t *testing.T) {
	gadget := &item.Item{
		ID: gadgetID, Code: "GAD-01", Name: "Gadget",
		MinStock: qty(10), IsManufactured: true,
	}
	repo := &fakeMRPRepo{}
	items := &fakeItemRepo{items: []*item.Item{gadget}}
	boms := &fakeBOMRepo{active: map[id.ID]*bom.BOM{}}
	svc := newTestService(repo, items, boms, &fakeReservationRepo{})

	reqs, err := svc.Calculate(context.Background(), CalculateOptions{
		TargetDate:         targetDate,
		IncludeSafetyStock: true,
	})
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestGenerateSuggestionsSupersedesPriorPending(t *testing.T) {
	stale := Suggestion{ID: id.New(), ItemID: widgetID, Status: SuggestionPending}
	repo := &fakeMRPRepo{stored: []Suggestion{stale}}
	items := &fakeItemRepo{items: []*item.Item{widget(50, 80, 7)}}
	boms := &fakeBOMRepo{active: map[id.ID]*bom.BOM{widgetID: widgetBOM()}}
	svc := newTestService(repo, items, boms, &fakeReservationRepo{})

	suggestions, err := svc.GenerateSuggestions(context.Background(), CalculateOptions{
		TargetDate:         targetDate,
		IncludeSafetyStock: true,
	})
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.True(t, repo.superseded)
	assert.Equal(t, SuggestionSuperseded, repo.stored[0].Status)
	assert.Equal(t, SuggestionPending, suggestions[0].Status)
	assert.Equal(t, qty(30), suggestions[0].Quantity)
}

func TestConvertToOrdersCopiesRoutingAndReservesMaterials(t *testing.T) {
	b := widgetBOM()
	sug := Suggestion{
		ID:                 id.New(),
		ItemID:             widgetID,
		BOMID:              b.ID,
		RoutingID:          &routingID,
		Quantity:           qty(30),
		Status:             SuggestionApproved,
		TargetDate:         targetDate,
		SuggestedStartDate: targetDate.AddDate(0, 0, -7),
	}
	wc := id.New()
	repo := &fakeMRPRepo{
		stored: []Suggestion{sug},
		routing: []production.RoutingStep{
			{RoutingID: routingID, Sequence: 10, WorkCenterID: wc, SetupMinutes: 15, RunMinutesPerUnit: 2},
			{RoutingID: routingID, Sequence: 20, WorkCenterID: wc, SetupMinutes: 5, RunMinutesPerUnit: 1},
		},
	}
	items := &fakeItemRepo{items: []*item.Item{widget(50, 80, 7)}}
	boms := &fakeBOMRepo{active: map[id.ID]*bom.BOM{widgetID: b}}
	res := &fakeReservationRepo{}
	svc := newTestService(repo, items, boms, res)

	result, err := svc.ConvertToOrders(context.Background(), []id.ID{sug.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.OrdersCreated)
	require.Len(t, repo.orders, 1)
	assert.Equal(t, qty(30), repo.orders[0].QtyPlanned)
	assert.Equal(t, production.OrderPlanned, repo.orders[0].Status)

	// Routing sequence numbers survive the copy.
	require.Len(t, repo.steps, 2)
	assert.Equal(t, 10, repo.steps[0].Sequence)
	assert.Equal(t, 20, repo.steps[1].Sequence)

	// One reservation per BOM line: 2 x 1.10 x 30 = 66. The hold carries no
	// warehouse, so it stays visible as outstanding in every warehouse view.
	require.Len(t, res.created, 1)
	assert.Equal(t, steelID, res.created[0].ItemID)
	assert.Equal(t, qty(66), res.created[0].QuantityReserved)
	assert.Equal(t, reservation.StatusReserved, res.created[0].Status)
	assert.Nil(t, res.created[0].WarehouseID)

	assert.Contains(t, repo.converted, sug.ID)
}

func TestConvertToOrdersAlreadyConvertedIsNoOp(t *testing.T) {
	sug := Suggestion{ID: id.New(), ItemID: widgetID, Status: SuggestionConverted}
	repo := &fakeMRPRepo{stored: []Suggestion{sug}}
	svc := newTestService(repo, &fakeItemRepo{}, &fakeBOMRepo{}, &fakeReservationRepo{})

	result, err := svc.ConvertToOrders(context.Background(), []id.ID{sug.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, result.OrdersCreated)
	assert.Equal(t, "no valid suggestions found", result.Message)
	assert.Equal(t, []id.ID{sug.ID}, result.SkippedIDs)
	assert.Empty(t, repo.orders)
}
