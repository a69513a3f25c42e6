package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
)

// BackupDir is the directory under the data dir that holds timestamped backups.
const BackupDir = "backups"

type TransferResult struct {
	Expenses  int `json:"expenses"`
	Budgets   int `json:"budgets"`
	Recurring int `json:"recurring"`
}

// Transfer copies every record from src into dst. dst is expected to be empty; duplicate ids
// abort the copy of that record set.
func Transfer(src, dst *Backend) (TransferResult, error) {
	var res TransferResult

	expenses, err := src.Expenses.List(expense.Filter{})
	if err != nil {
		return res, fmt.Errorf("read expenses: %w", err)
	}
	if err := dst.Expenses.CreateBatch(expenses); err != nil {
		return res, fmt.Errorf("write expenses: %w", err)
	}
	res.Expenses = len(expenses)

	budgets, err := src.Budgets.List()
	if err != nil {
		return res, fmt.Errorf("read budgets: %w", err)
	}
	for _, b := range budgets {
		if err := dst.Budgets.Upsert(b); err != nil {
			return res, fmt.Errorf("write budget %s: %w", b.Category, err)
		}
	}
	res.Budgets = len(budgets)

	rules, err := src.Recurring.List()
	if err != nil {
		return res, fmt.Errorf("read recurring rules: %w", err)
	}
	for _, r := range rules {
		if err := dst.Recurring.Create(r); err != nil {
			return res, fmt.Errorf("write recurring rule %s: %w", r.ID, err)
		}
	}
	res.Recurring = len(rules)
	return res, nil
}

// BackupJSON copies the JSON documents that exist in dataDir to backups/<timestamp>/ and
// returns that directory.
func BackupJSON(dataDir string, now time.Time) (string, error) {
	target := filepath.Join(dataDir, BackupDir, now.Format("20060102-150405"))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", internal.NewStorageError("failed to create backup directory", internal.ErrCodeStorageWrite, err)
	}
	for _, name := range jsonfile.Files {
		data, err := os.ReadFile(filepath.Join(dataDir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", internal.NewStorageError("failed to read "+name, internal.ErrCodeStorageRead, err)
		}
		if err := jsonfile.WriteAtomic(filepath.Join(target, name), data); err != nil {
			return "", internal.NewStorageError("failed to back up "+name, internal.ErrCodeStorageWrite, err)
		}
	}
	return target, nil
}
