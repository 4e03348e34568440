package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
	"github.com/nexusgateway/mcp-gateway/internal/identity"
	"github.com/nexusgateway/mcp-gateway/internal/store"
)

func strPtr(s string) *string { return &s }

func TestAuthorizeStatusUpdate_NonOwningCourierForbiddenOnAnyTransition(t *testing.T) {
	// Spec §8 scenario: a non-owning courier's update_status(in_transit) must
	// be 403, not fall through to the transition-table check.
	courier := identity.NewPrincipal("courier-b", []string{"courier"})
	err := authorizeStatusUpdate(courier, strPtr("courier-a"), store.DeliveryInTransit)

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindForbidden, ae.Kind)
}

func TestAuthorizeStatusUpdate_OwningCourierAllowed(t *testing.T) {
	courier := identity.NewPrincipal("courier-a", []string{"courier"})
	err := authorizeStatusUpdate(courier, strPtr("courier-a"), store.DeliveryInTransit)
	assert.NoError(t, err)
}

func TestAuthorizeStatusUpdate_UnassignedCourierForbidden(t *testing.T) {
	courier := identity.NewPrincipal("courier-a", []string{"courier"})
	err := authorizeStatusUpdate(courier, nil, store.DeliveryPickingUp)

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindForbidden, ae.Kind)
}

func TestAuthorizeStatusUpdate_NonCourierForbiddenOnTerminalCourierTransitions(t *testing.T) {
	dispatcher := identity.NewPrincipal("admin-1", []string{"admin"})
	err := authorizeStatusUpdate(dispatcher, strPtr("courier-a"), store.DeliveryDelivered)

	var ae *errorsx.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, errorsx.KindForbidden, ae.Kind)
}

func TestAuthorizeStatusUpdate_NonCourierAllowedOnOrdinaryTransitions(t *testing.T) {
	dispatcher := identity.NewPrincipal("admin-1", []string{"admin"})
	err := authorizeStatusUpdate(dispatcher, strPtr("courier-a"), store.DeliveryAssigned)
	assert.NoError(t, err)
}

func TestIsActiveStatus(t *testing.T) {
	assert.True(t, isActiveStatus(store.DeliveryInTransit))
	assert.False(t, isActiveStatus(store.DeliveryDelivered))
	assert.False(t, isActiveStatus(store.DeliveryCancelled))
}

func TestTransitions_RejectsUnknownTransition(t *testing.T) {
	allowed := transitions[store.DeliveryPendingAssignment]
	assert.True(t, allowed[store.DeliveryAssigned])
	assert.False(t, allowed[store.DeliveryDelivered])
}
