package anniversary

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/antoleandarius-dev/age-dashboard-chrome-extension/internal/config"
)

// MilestoneEvent is a milestone crossing rendered into the feed: either an
// already-reached crossing instant or a projected upcoming one.
type MilestoneEvent struct {
	Name string
	Date time.Time
}

// BuildCalendar renders the anniversaries and milestone crossings into an
// iCalendar feed. Anniversaries get one all-day event per year across a
// three-year window (previous, current, next) so calendar clients can scroll
// without an immediate refresh; milestone crossings are single events.
func BuildCalendar(now time.Time, items []Anniversary, milestones []MilestoneEvent) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	loc := now.Location()
	targetYears := []int{now.Year() - 1, now.Year(), now.Year() + 1}

	for _, item := range items {
		origin, err := time.Parse(config.DateFormatISO, item.Date)
		if err != nil {
			continue
		}
		uidBase := feedUID(item.Label, item.Date)

		for _, y := range targetYears {
			// No event before the anniversary's origin year.
			if y < origin.Year() {
				continue
			}
			event := ical.NewEvent()
			event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, y, config.ICalDomain))
			event.Props.SetText(config.PropSummary, item.Label)

			dtStartProp := ical.NewProp(config.PropDTStart)
			dtStartProp.SetDate(time.Date(y, origin.Month(), origin.Day(), 0, 0, 0, 0, loc))
			event.Props.Set(dtStartProp)
			event.Props.Set(dtStampProp)

			cal.Children = append(cal.Children, event.Component)
		}
	}

	for _, m := range milestones {
		event := ical.NewEvent()
		uidBase := feedUID(m.Name, m.Date.Format(config.DateFormatISO))
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, m.Date.Year(), config.ICalDomain))
		event.Props.SetText(config.PropSummary, m.Name)

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(m.Date.In(loc))
		event.Props.Set(dtStartProp)
		event.Props.Set(dtStampProp)

		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

// feedUID derives a stable event UID so re-rendering the feed never churns
// client-side calendars.
func feedUID(label, date string) string {
	input := fmt.Sprintf(config.FormatHashInput, label, date, config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}
