package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bloodfinder/m/domain"
	"bloodfinder/m/internal/database"
	"bloodfinder/m/internal/migrations"
	"bloodfinder/m/internal/repository/sqlstore"
)

const seedCSV = `name,email,password,role,phone,address,city,zipcode,low_stock_threshold
Alice,alice@example.com,secret,donor,555-0001,1 Elm St,Boston,02101,
City Bank,bank@example.com,secret,blood_bank,555-0002,2 Oak St,Boston,02101,5
Broken,broken@example.com,secret,nurse,555-0003,,Boston,02101,
Short,short@example.com
`

func TestReadAccounts(t *testing.T) {
	rows, err := ReadAccounts(strings.NewReader(seedCSV), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.RoleDonor, rows[0].Role)
	assert.Nil(t, rows[0].LowStockThreshold)
	require.NotNil(t, rows[1].LowStockThreshold)
	assert.Equal(t, 5, *rows[1].LowStockThreshold)
}

func TestLoadAccounts(t *testing.T) {
	hashCost = bcrypt.MinCost

	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))
	store := sqlstore.New(db)
	t.Cleanup(func() { db.Close() })

	path := filepath.Join(t.TempDir(), "accounts.csv")
	require.NoError(t, os.WriteFile(path, []byte(seedCSV), 0o600))

	ctx := context.Background()
	created, err := LoadAccounts(ctx, store, zap.NewNop(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	bank, err := store.GetAccountByEmail(ctx, "bank@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBloodBank, bank.Role)
	assert.Equal(t, 5, bank.Threshold(10))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(bank.PasswordHash), []byte("secret")))

	again, err := LoadAccounts(ctx, store, zap.NewNop(), path)
	require.NoError(t, err)
	assert.Zero(t, again)

	_, err = LoadAccounts(ctx, store, zap.NewNop(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
