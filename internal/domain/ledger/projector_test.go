package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/catalog/item"
)

type fakeItemRepo struct {
	items  map[id.ID]*item.Item
	writes map[id.ID]types.Quantity
}

func (f *fakeItemRepo) GetByID(_ context.Context, itemID id.ID) (*item.Item, error) {
	if it, ok := f.items[itemID]; ok {
		return it, nil
	}
	return nil, apperror.NewNotFound("item", itemID)
}

func (f *fakeItemRepo) GetByIDs(_ context.Context, ids []id.ID) (map[id.ID]*item.Item, error) {
	out := map[id.ID]*item.Item{}
	for _, wanted := range ids {
		if it, ok := f.items[wanted]; ok {
			out[wanted] = it
		}
	}
	return out, nil
}

func (f *fakeItemRepo) ListManufactured(_ context.Context) ([]*item.Item, error) { return nil, nil }

func (f *fakeItemRepo) UpdateUnitCost(_ context.Context, _ id.ID, _ types.Money) error { return nil }

func (f *fakeItemRepo) UpdateStock(_ context.Context, itemID id.ID, stock types.Quantity) error {
	if f.writes == nil {
		f.writes = map[id.ID]types.Quantity{}
	}
	f.writes[itemID] = stock
	return nil
}

func TestRebuildItemStockWritesDriftedFiguresOnly(t *testing.T) {
	driftedID := id.MustParse("018f0000-0000-7000-8000-000000000050")
	steadyID := id.MustParse("018f0000-0000-7000-8000-000000000051")
	orphanID := id.MustParse("018f0000-0000-7000-8000-000000000052")

	repo := &fakeLedgerRepo{
		sumsByItem: map[id.ID]types.Quantity{
			driftedID: types.NewQuantityFromFloat64(42),
			steadyID:  types.NewQuantityFromFloat64(10),
			orphanID:  types.NewQuantityFromFloat64(3),
		},
	}
	items := &fakeItemRepo{items: map[id.ID]*item.Item{
		driftedID: {ID: driftedID, Code: "DRF-01", Stock: types.NewQuantityFromFloat64(40)},
		steadyID:  {ID: steadyID, Code: "STD-01", Stock: types.NewQuantityFromFloat64(10)},
	}}

	projector := NewStockProjector(repo, items)
	updated, err := projector.RebuildItemStock(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, updated)
	assert.Equal(t, types.NewQuantityFromFloat64(42), items.writes[driftedID])
	assert.NotContains(t, items.writes, steadyID)
	assert.NotContains(t, items.writes, orphanID)
}

func TestRebuildItemStockEmptyLogIsNoOp(t *testing.T) {
	projector := NewStockProjector(&fakeLedgerRepo{}, &fakeItemRepo{})

	updated, err := projector.RebuildItemStock(context.Background())
	require.NoError(t, err)
	assert.Zero(t, updated)
}
