// Package anniversary manages custom anniversary dates, imports them from
// vCard files and renders the iCalendar feed.
package anniversary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-vcard"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/idgen"
	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/storage"
)

// Anniversary is one tracked date. Date keeps the ISO string form it was
// entered with, which is also the stored shape.
type Anniversary struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Date  string `json:"date"`
}

// Manager owns the anniversary list.
type Manager struct {
	mu    sync.Mutex
	store *storage.Coalescer
	ids   *idgen.Source
	items []Anniversary
}

// NewManager returns an empty manager persisting through store.
func NewManager(store *storage.Coalescer, ids *idgen.Source) *Manager {
	return &Manager{store: store, ids: ids}
}

// Load pulls the persisted list; a missing key defaults to empty.
func (m *Manager) Load(ctx context.Context) error {
	data, err := m.store.Get(ctx, config.KeyAnniversaries)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageGet, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	var items []Anniversary
	if ok, decErr := storage.Decode(data[config.KeyAnniversaries], &items); decErr != nil {
		slog.Warn(config.ErrDecodeValue,
			config.LogKeyComponent, config.CompAnniv,
			config.LogKeyKey, config.KeyAnniversaries,
			config.LogKeyError, decErr,
		)
	} else if ok {
		m.items = items
	}
	return nil
}

// Add appends a new anniversary. The label is trimmed and required; the
// date must parse as an ISO calendar date.
func (m *Manager) Add(label, date string) (*Anniversary, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return nil, errors.New(config.ErrLabelEmpty)
	}
	if strings.TrimSpace(date) == "" {
		return nil, errors.New(config.ErrDateEmpty)
	}
	if _, err := time.Parse(config.DateFormatISO, date); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDateParse, err)
	}

	item := Anniversary{
		ID:    m.ids.Next(),
		Label: trimmed,
		Date:  date,
	}

	m.mu.Lock()
	m.items = append(m.items, item)
	m.persistLocked()
	m.mu.Unlock()

	slog.Debug(config.MsgAnnivAdded,
		config.LogKeyComponent, config.CompAnniv,
		config.LogKeyID, item.ID,
	)
	return &item, nil
}

// Delete removes the anniversary with id. Returns false when no entry
// matches.
func (m *Manager) Delete(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			m.persistLocked()
			return true
		}
	}
	return false
}

// All returns a copy of the list in insertion order.
func (m *Manager) All() []Anniversary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Anniversary, len(m.items))
	copy(out, m.items)
	return out
}

// ImportVCards decodes a vCard stream and adds one anniversary per card
// carrying a parseable BDAY. Malformed cards and unparseable dates are
// skipped so one bad entry does not sink the import. Returns the number of
// anniversaries added.
func (m *Manager) ImportVCards(r io.Reader) (int, error) {
	decoder := vcard.NewDecoder(r)
	added := 0

	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompAnniv,
				config.LogKeyError, err,
			)
			continue
		}

		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}
		date, err := parseDate(bday.Value)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompAnniv,
				config.LogKeyValue, bday.Value,
			)
			continue
		}

		// Name strategy: FN (Formatted) > N (Structured) > fallback.
		name := config.FallbackName
		if fn := card.Get(config.VCardFN); fn != nil {
			name = fn.Value
		} else if n := card.Get(config.VCardN); n != nil {
			name = n.Value
		}

		if _, err := m.Add(name, date.Format(config.DateFormatISO)); err == nil {
			added++
		}
	}

	slog.Info(config.MsgAnnivImported,
		config.LogKeyComponent, config.CompAnniv,
		config.LogKeyCount, added,
	)
	return added, nil
}

// persistLocked schedules a debounced write of the list. Caller holds m.mu.
func (m *Manager) persistLocked() {
	items := make([]Anniversary, len(m.items))
	copy(items, m.items)
	m.store.Set(config.KeyAnniversaries, items)
}

// parseDate handles the vCard date formats seen in the wild.
func parseDate(value string) (time.Time, error) {
	formatsWithYear := []string{
		config.DateFormatISO,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, nil
		}
	}

	// Truncated dates (year unknown), anchored to a leap year so Feb 29
	// survives.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, errors.New(config.ErrDateParse)
}
