package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/vidar/internal/domain"
	"github.com/dukerupert/vidar/internal/service"
)

func changesetOrder() *domain.Order {
	return &domain.Order{
		ID:    "order-1",
		State: domain.StateModifying,
		Lines: []domain.OrderLine{
			{ID: "line-1", ProductVariantID: "variant-1", Quantity: 2},
			{ID: "line-2", ProductVariantID: "variant-2", Quantity: 1},
		},
	}
}

func houseBlend() service.CatalogSnapshot {
	return service.CatalogSnapshot{
		ProductVariantID: "variant-9",
		ProductName:      "House Blend - 1lb",
		SKU:              "HB-1LB",
		Price:            500,
		PriceWithTax:     550,
		TaxRate:          10,
	}
}

func Test_ChangeSet_ReAddingIncrementsQuantity(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())

	cs.AddItem(houseBlend())
	cs.AddItem(houseBlend())

	staged := cs.StagedItems()
	require.Len(t, staged, 1, "re-adding a staged variant must not create a second entry")
	assert.Equal(t, 2, staged[0].Quantity)

	req := cs.BuildRequest(true, nil)
	require.Len(t, req.AddedItems, 1)
	assert.Equal(t, 2, req.AddedItems[0].Quantity)
}

func Test_ChangeSet_RemoveItemDeletesEntry(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())

	cs.AddItem(houseBlend())
	require.NoError(t, cs.SetAddedItemQuantity("variant-9", 5))
	cs.RemoveItem("variant-9")

	assert.Empty(t, cs.StagedItems(), "removal deletes the entry, not one unit")
	assert.False(t, cs.HasChanges())
}

func Test_ChangeSet_SetLineQuantityBackToOriginalIsNoOp(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())

	require.NoError(t, cs.SetLineQuantity("line-1", 5))
	assert.True(t, cs.HasChanges())

	require.NoError(t, cs.SetLineQuantity("line-1", 2))
	assert.False(t, cs.HasChanges(), "restoring the persisted quantity must cancel the adjustment")

	req := cs.BuildRequest(true, nil)
	assert.Empty(t, req.LineAdjustments)
}

func Test_ChangeSet_SetLineQuantityUnknownLine(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())

	err := cs.SetLineQuantity("line-99", 3)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func Test_ChangeSet_SetAddedItemQuantityRejectsNonPositive(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())
	cs.AddItem(houseBlend())

	for _, qty := range []int{0, -1} {
		err := cs.SetAddedItemQuantity("variant-9", qty)
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	}

	staged := cs.StagedItems()
	require.Len(t, staged, 1)
	assert.Equal(t, 1, staged[0].Quantity, "rejected edits must not change the staged quantity")
}

func Test_ChangeSet_SurchargeRequiresDescription(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())

	err := cs.AddSurcharge(service.DefaultSurchargeInput())
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	in := service.DefaultSurchargeInput()
	in.Description = "rush handling"
	in.PriceWithTax = 275
	in.TaxRate = 10
	require.NoError(t, cs.AddSurcharge(in))
	assert.True(t, cs.HasChanges())

	cs.RemoveSurcharge(0)
	assert.False(t, cs.HasChanges())
	cs.RemoveSurcharge(0) // out of range is ignored
}

func Test_ChangeSet_EmptyAddressPatchClears(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())

	city := "Portland"
	cs.PatchShippingAddress(domain.AddressPatch{City: &city})
	assert.True(t, cs.HasChanges())

	cs.PatchShippingAddress(domain.AddressPatch{})
	assert.False(t, cs.HasChanges())
}

func Test_ChangeSet_PreviewGate(t *testing.T) {
	tests := []struct {
		name        string
		stage       func(cs *service.ChangeSet)
		canPreview  bool
		explanation string
	}{
		{
			name:        "no changes and no note",
			stage:       func(cs *service.ChangeSet) {},
			canPreview:  false,
			explanation: "an empty session has nothing to preview",
		},
		{
			name: "changes without a note",
			stage: func(cs *service.ChangeSet) {
				cs.AddItem(houseBlend())
			},
			canPreview:  false,
			explanation: "the note is mandatory, not optional metadata",
		},
		{
			name: "note without changes",
			stage: func(cs *service.ChangeSet) {
				cs.SetNote("customer called")
			},
			canPreview:  false,
			explanation: "a note alone is not a modification",
		},
		{
			name: "changes and a note",
			stage: func(cs *service.ChangeSet) {
				cs.AddItem(houseBlend())
				cs.SetNote("customer requested an extra bag")
			},
			canPreview:  true,
			explanation: "both preconditions satisfied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := service.NewChangeSet(changesetOrder())
			tt.stage(cs)
			assert.Equal(t, tt.canPreview, cs.CanPreview(), tt.explanation)
		})
	}
}

func Test_ChangeSet_BuildRequestIsDeterministic(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())
	cs.AddItem(houseBlend())
	cs.AddItem(service.CatalogSnapshot{ProductVariantID: "variant-8", Price: 300, PriceWithTax: 330, TaxRate: 10})
	require.NoError(t, cs.SetLineQuantity("line-2", 4))
	require.NoError(t, cs.SetLineQuantity("line-1", 1))
	cs.SetNote("bundle adjustment")

	first := cs.BuildRequest(true, nil)
	second := cs.BuildRequest(true, nil)
	assert.Equal(t, first, second)

	require.Len(t, first.AddedItems, 2)
	assert.Equal(t, "variant-9", first.AddedItems[0].ProductVariantID, "additions keep staging order")
	require.Len(t, first.LineAdjustments, 2)
	assert.Equal(t, "line-1", first.LineAdjustments[0].OrderLineID, "adjustments keep the order's line order")
}

func Test_ChangeSet_CommitRequestMatchesDryRun(t *testing.T) {
	cs := service.NewChangeSet(changesetOrder())
	cs.AddItem(houseBlend())
	cs.SetNote("customer requested an extra bag")

	dry := cs.BuildRequest(true, nil)
	commit := cs.BuildRequest(false, &domain.RefundInput{PaymentID: "pay_1", Reason: "item removed"})

	assert.True(t, dry.DryRun)
	assert.False(t, commit.DryRun)
	require.NotNil(t, commit.Refund)

	// Strip the two deliberate differences; everything else must match.
	dry.DryRun = false
	commit.Refund = nil
	assert.Equal(t, dry, commit, "commit must re-submit the previewed content unchanged")
}
