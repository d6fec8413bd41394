package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bloodfinder/m/domain"
	"bloodfinder/m/internal/repository"
)

var hashCost = bcrypt.DefaultCost

// Row is one account line of the seed file:
// name,email,password,role,phone,address,city,zipcode,low_stock_threshold
type Row struct {
	Name              string
	Email             string
	Password          string
	Role              domain.Role
	Phone             string
	Address           string
	City              string
	Zipcode           string
	LowStockThreshold *int
}

// ReadAccounts parses the seed CSV. The header line is skipped; malformed rows
// are logged and dropped.
func ReadAccounts(r io.Reader, logger *zap.Logger) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("unable to read account header: %w", err)
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("unable to read account row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if len(record) < 8 {
			logger.Warn("short account row", zap.Int("line", line), zap.Int("fields", len(record)))
			continue
		}

		row := Row{
			Name:     strings.TrimSpace(record[0]),
			Email:    strings.TrimSpace(record[1]),
			Password: record[2],
			Role:     domain.Role(strings.TrimSpace(record[3])),
			Phone:    strings.TrimSpace(record[4]),
			Address:  strings.TrimSpace(record[5]),
			City:     strings.TrimSpace(record[6]),
			Zipcode:  strings.TrimSpace(record[7]),
		}
		if row.Email == "" || row.Password == "" || !row.Role.Valid() {
			logger.Warn("invalid account row", zap.Int("line", line), zap.String("email", row.Email))
			continue
		}
		if len(record) > 8 && strings.TrimSpace(record[8]) != "" {
			threshold, err := strconv.Atoi(strings.TrimSpace(record[8]))
			if err != nil || threshold < 0 {
				logger.Warn("invalid low stock threshold", zap.Int("line", line), zap.String("value", record[8]))
				continue
			}
			row.LowStockThreshold = &threshold
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadAccounts ingests the seed CSV at csvPath into the account store in one
// transaction, skipping emails that already exist. It returns the number of
// accounts created.
func LoadAccounts(ctx context.Context, store repository.Store, logger *zap.Logger, csvPath string) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("unable to open account seed %s: %w", csvPath, err)
	}
	defer file.Close()

	rows, err := ReadAccounts(file, logger)
	if err != nil {
		return 0, err
	}

	created := 0
	err = store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		for _, row := range rows {
			_, err := tx.GetAccountByEmail(ctx, row.Email)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrAccountNotFound) {
				return err
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(row.Password), hashCost)
			if err != nil {
				return fmt.Errorf("unable to hash password for %s: %w", row.Email, err)
			}
			account := &domain.Account{
				Name:              row.Name,
				Email:             row.Email,
				PasswordHash:      string(hash),
				Role:              row.Role,
				Phone:             row.Phone,
				Address:           row.Address,
				City:              row.City,
				Zipcode:           row.Zipcode,
				LowStockThreshold: row.LowStockThreshold,
			}
			if err := tx.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("unable to insert account %s: %w", row.Email, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("seeded accounts", zap.Int("created", created), zap.Int("rows", len(rows)))
	return created, nil
}
