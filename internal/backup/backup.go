// Package backup implements full-state export and import. An export is a
// single JSON document holding every user-facing collection plus the export
// timestamp; importing one overwrites only the sections the file carries.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wumikay/pos/internal/domain"
	"wumikay/pos/internal/state"
)

var ErrBadFormat = errors.New("unrecognized backup format")

// exportKeys are the sections a backup file carries, in order. The activity
// log is deliberately left out of backups.
var exportKeys = []string{
	state.KeyProducts,
	state.KeyCustomers,
	state.KeyTransactions,
	state.KeyUsers,
	state.KeyBusinessSettings,
	state.KeyPrinterSettings,
	state.KeyNotificationSettings,
}

type Manager struct {
	repo *state.Repo
	now  func() time.Time
}

func NewManager(repo *state.Repo) *Manager {
	return &Manager{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Export serializes the current state. Absent sections are emitted as JSON
// null so a fresh install still produces a valid file.
func (m *Manager) Export(ctx context.Context) ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(exportKeys)+1)
	for _, key := range exportKeys {
		raw, err := m.repo.Raw(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", key, err)
		}
		if raw == nil {
			raw = json.RawMessage("null")
		}
		doc[key] = raw
	}

	stamp, err := json.Marshal(m.now().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	doc["exportDate"] = stamp

	return json.MarshalIndent(doc, "", "  ")
}

// sectionShape decodes a section into its typed value, so a file with a
// malformed section is rejected before anything is written.
var sectionShape = map[string]func(json.RawMessage) error{
	state.KeyProducts:             decodeAs[[]domain.Product],
	state.KeyCustomers:            decodeAs[[]domain.Customer],
	state.KeyTransactions:         decodeAs[[]domain.Transaction],
	state.KeyUsers:                decodeAs[[]domain.User],
	state.KeyBusinessSettings:     decodeAs[domain.BusinessSettings],
	state.KeyPrinterSettings:      decodeAs[domain.PrinterSettings],
	state.KeyNotificationSettings: decodeAs[domain.NotificationSettings],
}

func decodeAs[T any](raw json.RawMessage) error {
	var v T
	return json.Unmarshal(raw, &v)
}

// Import restores state from an export file. Only sections present in the
// file are written; everything else keeps its current value. Any malformed
// section rejects the whole file with nothing applied.
func (m *Manager) Import(ctx context.Context, data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if len(doc) == 0 {
		return ErrBadFormat
	}

	apply := make(map[string]json.RawMessage, len(doc))
	for _, key := range exportKeys {
		raw, ok := doc[key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := sectionShape[key](raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadFormat, key, err)
		}
		apply[key] = raw
	}
	if len(apply) == 0 {
		return ErrBadFormat
	}

	for _, key := range exportKeys {
		raw, ok := apply[key]
		if !ok {
			continue
		}
		if err := m.repo.SetRaw(ctx, key, raw); err != nil {
			return fmt.Errorf("import %s: %w", key, err)
		}
	}
	return nil
}

// Wipe deletes every stored collection, settings included.
func (m *Manager) Wipe(ctx context.Context) error {
	return m.repo.Wipe(ctx)
}
