package customers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/db/dbtest"
	"github.com/inkhouse/backoffice/pkg/enums"
	pkgerrors "github.com/inkhouse/backoffice/pkg/errors"
	"github.com/inkhouse/backoffice/pkg/pagination"
)

type harness struct {
	svc      Service
	activity activity.Service
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn := dbtest.Open(t)
	activitySvc, err := activity.NewService(activity.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), activitySvc)
	require.NoError(t, err)
	return harness{svc: svc, activity: activitySvc}
}

func strPtr(v string) *string { return &v }

func TestCreateCustomerLogsActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := uuid.New()

	customer, err := h.svc.Create(ctx, CreateCustomerInput{
		DisplayName: "  Ravi Prints  ",
		Phone:       strPtr(" 98450 00000 "),
		Email:       strPtr("ravi@example.com"),
		Address:     strPtr("   "),
		ActorID:     actor,
		RequestID:   "req-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Prints", customer.DisplayName)
	require.NotNil(t, customer.Phone)
	assert.Equal(t, "98450 00000", *customer.Phone)
	assert.Nil(t, customer.Address)
	assert.True(t, customer.Active)

	got, err := h.svc.Get(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.ID)

	entries, err := h.activity.List(ctx, enums.SubjectTypeCustomer, customer.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.ActivityCustomerCreated, entries[0].Action)
	assert.Equal(t, actor, entries[0].ActorID)
	require.NotNil(t, entries[0].RequestID)
	assert.Equal(t, "req-42", *entries[0].RequestID)
}

func TestCreateCustomerValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, CreateCustomerInput{DisplayName: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Create(ctx, CreateCustomerInput{DisplayName: "  ", ActorID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Create(ctx, CreateCustomerInput{DisplayName: "Shop", Email: strPtr("not-an-email"), ActorID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetUnknownCustomer(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeactivateIsSoftAndSingleShot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := uuid.New()

	customer, err := h.svc.Create(ctx, CreateCustomerInput{DisplayName: "Meera Stationers", ActorID: actor})
	require.NoError(t, err)

	deactivated, err := h.svc.Deactivate(ctx, DeactivateCustomerInput{CustomerID: customer.ID, ActorID: actor})
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	_, err = h.svc.Deactivate(ctx, DeactivateCustomerInput{CustomerID: customer.ID, ActorID: actor})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = h.svc.Deactivate(ctx, DeactivateCustomerInput{CustomerID: uuid.New(), ActorID: actor})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	got, err := h.svc.Get(ctx, customer.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	entries, err := h.activity.List(ctx, enums.SubjectTypeCustomer, customer.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.ActivityCustomerDeactivated, entries[0].Action)
}

func TestListPagesAndFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := uuid.New()

	var ids []uuid.UUID
	for _, name := range []string{"Alpha Press", "Beta Cards", "Gamma Labels"} {
		c, err := h.svc.Create(ctx, CreateCustomerInput{DisplayName: name, ActorID: actor})
		require.NoError(t, err)
		ids = append(ids, c.ID)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := h.svc.Deactivate(ctx, DeactivateCustomerInput{CustomerID: ids[0], ActorID: actor})
	require.NoError(t, err)

	first, err := h.svc.List(ctx, ListParams{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	assert.Equal(t, ids[2], first.Customers[0].ID, "newest first")
	require.NotEmpty(t, first.NextCursor)

	second, err := h.svc.List(ctx, ListParams{Params: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.Equal(t, ids[0], second.Customers[0].ID)
	assert.Empty(t, second.NextCursor)

	active := true
	onlyActive, err := h.svc.List(ctx, ListParams{Active: &active})
	require.NoError(t, err)
	assert.Len(t, onlyActive.Customers, 2)

	searched, err := h.svc.List(ctx, ListParams{Search: "beta"})
	require.NoError(t, err)
	require.Len(t, searched.Customers, 1)
	assert.Equal(t, "Beta Cards", searched.Customers[0].DisplayName)

	_, err = h.svc.List(ctx, ListParams{Params: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
