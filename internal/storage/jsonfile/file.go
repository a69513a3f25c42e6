package jsonfile

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	errors "github.com/frahmantamala/dot-spend/internal"
	recurringDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/recurring"
	"github.com/shopspring/decimal"
)

// WriteAtomic replaces path with data. The bytes go to a temp file in the same directory,
// which is synced and renamed over the target, so readers see the old or the new document
// and never a torn one.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// WriteJSON encodes v indented and writes it atomically.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to encode "+filepath.Base(path), errors.ErrCodeStorageWrite, err)
	}
	data = append(data, '\n')
	if err := WriteAtomic(path, data); err != nil {
		return errors.NewStorageError("failed to write "+filepath.Base(path), errors.ErrCodeStorageWrite, err)
	}
	return nil
}

// ReadJSON decodes path into v. A missing or blank file leaves v untouched and reports
// found=false. Undecodable content is a corrupt-storage error.
func ReadJSON(path string, v interface{}) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.NewStorageError("failed to read "+filepath.Base(path), errors.ErrCodeStorageRead, err)
	}
	return decodeJSON(path, data, v)
}

func decodeJSON(path string, data []byte, v interface{}) (found bool, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, corrupt(path, err.Error())
	}
	return true, nil
}

// Validate checks that data is a readable copy of the named store document, applying the
// same checks as a load. Other JSON files only need to be well formed.
func Validate(name string, data []byte) error {
	var err error
	switch name {
	case ExpensesFile:
		var docs []expenseDocument
		if _, err = decodeJSON(name, data, &docs); err == nil {
			_, _, err = decodeExpenses(name, docs, "")
		}
	case BudgetsFile:
		doc := map[string]decimal.Decimal{}
		if _, err = decodeJSON(name, data, &doc); err == nil {
			err = checkBudgets(name, doc)
		}
	case RecurringFile:
		var rules []*recurringDatamodel.Rule
		if _, err = decodeJSON(name, data, &rules); err == nil {
			err = checkRules(name, rules)
		}
	default:
		if !json.Valid(data) {
			err = corrupt(name, "not valid JSON")
		}
	}
	return err
}

func corrupt(path, reason string) *errors.AppError {
	return errors.NewStorageError(fmt.Sprintf("%s is corrupt: %s", filepath.Base(path), reason), errors.ErrCodeStorageCorrupt, nil)
}
