package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/store"
)

func TestValidateCreateSaleInput_RejectsEmptyItems(t *testing.T) {
	err := validateCreateSaleInput(CreateSaleInput{Currency: "USD"})

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}

func TestValidateCreateSaleInput_RejectsNonPositiveQuantity(t *testing.T) {
	err := validateCreateSaleInput(CreateSaleInput{
		Currency: "USD",
		Items:    []ItemInput{{SKU: "sku-1", Quantity: 0}},
	})

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}

func TestValidateCreateSaleInput_RejectsLongCurrency(t *testing.T) {
	err := validateCreateSaleInput(CreateSaleInput{
		Currency: "DOLLARS",
		Items:    []ItemInput{{SKU: "sku-1", Quantity: 1}},
	})

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindValidationFailed, ae.Kind)
}

func TestValidateCreateSaleInput_AcceptsValidInput(t *testing.T) {
	err := validateCreateSaleInput(CreateSaleInput{
		Currency: "USD",
		Items:    []ItemInput{{SKU: "sku-1", Quantity: 2}},
	})
	assert.NoError(t, err)
}

func TestCanonicalSignature_OrderIndependent(t *testing.T) {
	a := canonicalSignature([]ItemInput{{SKU: "b", Quantity: 1}, {SKU: "a", Quantity: 2}})
	b := canonicalSignature([]ItemInput{{SKU: "a", Quantity: 2}, {SKU: "b", Quantity: 1}})
	assert.Equal(t, a, b)
}

func TestCanonicalSignature_DistinguishesQuantity(t *testing.T) {
	a := canonicalSignature([]ItemInput{{SKU: "a", Quantity: 1}})
	b := canonicalSignature([]ItemInput{{SKU: "a", Quantity: 2}})
	assert.NotEqual(t, a, b)
}

func TestTerminalSaleStatuses(t *testing.T) {
	assert.True(t, terminalSaleStatuses[store.SaleStatusCancelled])
	assert.True(t, terminalSaleStatuses[store.SaleStatusDelivered])
	assert.False(t, terminalSaleStatuses[store.SaleStatusProcessing])
}
