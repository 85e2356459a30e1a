package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"shopgate/internal/tenancy"
	"shopgate/internal/tenantid"
	"shopgate/pkg/problems"
)

func TestMemoryStoreIsTenantScoped(t *testing.T) {
	codec, err := tenantid.NewCodec("store-test")
	require.NoError(t, err)
	router := tenancy.NewSchemaRouter("public", "tenant_")
	t1, _ := codec.Generate()
	t2, _ := codec.Generate()

	store := NewMemoryStore(router)
	store.PutStaff(router.SchemaFor(t1), StaffRecord{Username: "admin", Active: true})
	store.PutShopper(router.SchemaFor(t2), ShopperRecord{Username: "jane", Registered: true})

	ctx1 := tenancy.WithContext(context.Background(), t1)
	ctx2 := tenancy.WithContext(context.Background(), t2)

	rec, err := store.FindStaffByUsername(ctx1, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", rec.Username)

	_, err = store.FindStaffByUsername(ctx2, "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindShopperByUsername(ctx1, "jane")
	assert.ErrorIs(t, err, ErrNotFound)

	shopper, err := store.FindShopperByUsername(ctx2, "jane")
	require.NoError(t, err)
	assert.True(t, shopper.Registered)

	_, err = store.FindStaffByUsername(context.Background(), "admin")
	assert.Equal(t, problems.ENoTenantContext, problems.CodeOf(err))
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "S3cret"))
	assert.False(t, CheckPassword("", ""))
}

func TestSeedApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tenants:
  - tenant: default
    staff:
      - {username: admin, password: admin-pw, authorities: [ROLE_ADMIN]}
    shoppers:
      - {username: jane, password: jane-pw}
      - {username: guest, registered: false}
`), 0o600))

	seed, err := LoadSeed(path)
	require.NoError(t, err)

	router := tenancy.NewSchemaRouter("public", "tenant_")
	store := NewMemoryStore(router)
	require.NoError(t, seed.Apply(store, func(string) (string, error) { return "public", nil }, bcrypt.MinCost))

	ctx := tenancy.WithContext(context.Background(), tenantid.Default)
	admin, err := store.FindStaffByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, CheckPassword(admin.PasswordHash, "admin-pw"))
	assert.Equal(t, []string{"ROLE_ADMIN"}, admin.Authorities)

	jane, err := store.FindShopperByUsername(ctx, "jane")
	require.NoError(t, err)
	assert.True(t, jane.Registered)

	guest, err := store.FindShopperByUsername(ctx, "guest")
	require.NoError(t, err)
	assert.False(t, guest.Registered)
	assert.Empty(t, guest.PasswordHash)
}
