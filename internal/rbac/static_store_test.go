package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/erpconsole/internal/shared"
)

func TestDemoStoreGrantsAdminEverything(t *testing.T) {
	store := DemoStore(1)
	perms, err := store.UserEffectivePermissions(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{shared.PermCodesEdit, shared.PermCodesExport, shared.PermCodesView}, perms)

	perms, err = store.UserEffectivePermissions(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestStaticStoreListGrants(t *testing.T) {
	grants, err := DemoStore(1).ListGrants(context.Background())
	require.NoError(t, err)
	require.Len(t, grants, 3)
	assert.Equal(t, shared.PermCodesEdit, grants[0].Name)
	assert.Equal(t, []string{AdminRole}, grants[0].Roles)
	assert.Equal(t, shared.PermCodesView, grants[2].Name)
	assert.Equal(t, []string{AdminRole, "viewer"}, grants[2].Roles)
}
