package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes. Telegram caps callback data at 64 bytes.
const (
	cbVenue     = "venue:"
	cbDate      = "date:"
	cbMonth     = "cal:"
	cbSlot      = "slot:"
	cbVisitors  = "vis:"
	cbVisitorOK = "visok:"
	cbPay       = "pay"
	cbAgain     = "again"
	cbHome      = "home"
	cbNoop      = "noop"

	monthLayout    = "2006-01"
	maxPerCategory = 20
)

var weekdayHeader = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

func noopButton(text string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, cbNoop)
}

func venueKeyboard(venues []models.Venue) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(venues))
	for _, v := range venues {
		label := v.Name
		if v.Location != "" {
			label = fmt.Sprintf("%s, %s", v.Name, v.Location)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbVenue+v.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// calendarKeyboard renders one month. Days outside [first, last] are not
// selectable and the arrows only lead to months that contain bookable days.
func calendarKeyboard(month, first, last time.Time) tgbotapi.InlineKeyboardMarkup {
	month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := month.AddDate(0, -1, 0)
	next := month.AddDate(0, 1, 0)

	prevBtn := noopButton(" ")
	if month.After(first) {
		prevBtn = tgbotapi.NewInlineKeyboardButtonData("‹", cbMonth+prev.Format(monthLayout))
	}
	nextBtn := noopButton(" ")
	if !next.After(last) {
		nextBtn = tgbotapi.NewInlineKeyboardButtonData("›", cbMonth+next.Format(monthLayout))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		{prevBtn, noopButton(month.Format("January 2006")), nextBtn},
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range weekdayHeader {
		header = append(header, noopButton(d))
	}
	rows = append(rows, header)

	// Monday-first offset of the 1st.
	offset := (int(month.Weekday()) + 6) % 7
	week := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for i := 0; i < offset; i++ {
		week = append(week, noopButton(" "))
	}

	for day := month; day.Before(next); day = day.AddDate(0, 0, 1) {
		if day.Before(first) || day.After(last) {
			week = append(week, noopButton("·"))
		} else {
			week = append(week, tgbotapi.NewInlineKeyboardButtonData(
				strconv.Itoa(day.Day()), cbDate+day.Format(models.DateLayout)))
		}
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, noopButton(" "))
		}
		rows = append(rows, week)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func slotKeyboard(slots []models.SlotAvailability) *tgbotapi.InlineKeyboardMarkup {
	if len(slots) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(slots))
	for _, s := range slots {
		if !s.IsAvailable {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(noopButton(s.Time+" (full)")))
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s (%d left)", s.Time, s.Available), cbSlot+s.Time),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// visitorKeyboard carries the counters in the callback data itself, so
// pressing +/- needs no server-side draft.
func visitorKeyboard(c models.VisitorCounts) tgbotapi.InlineKeyboardMarkup {
	type category struct {
		label string
		get   func(*models.VisitorCounts) *int
	}
	categories := []category{
		{"Adults", func(v *models.VisitorCounts) *int { return &v.Adult }},
		{"Children", func(v *models.VisitorCounts) *int { return &v.Child }},
		{"Seniors", func(v *models.VisitorCounts) *int { return &v.Senior }},
		{"Tourists", func(v *models.VisitorCounts) *int { return &v.Tourist }},
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(categories)+1)
	for _, cat := range categories {
		n := *cat.get(&c)

		minus := noopButton(" ")
		if n > 0 {
			less := c
			*cat.get(&less) = n - 1
			minus = tgbotapi.NewInlineKeyboardButtonData("−", cbVisitors+encodeCounts(less))
		}
		plus := noopButton(" ")
		if n < maxPerCategory {
			more := c
			*cat.get(&more) = n + 1
			plus = tgbotapi.NewInlineKeyboardButtonData("+", cbVisitors+encodeCounts(more))
		}

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(minus, noopButton(fmt.Sprintf("%s: %d", cat.label, n)), plus))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Continue (%d)", c.Total()), cbVisitorOK+encodeCounts(c)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func paymentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💳 Pay now", cbPay)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Cancel", cbHome)),
	)
}

func checkoutKeyboard(link string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("💳 Open checkout", link)),
	)
}

func completeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Book again", cbAgain),
			tgbotapi.NewInlineKeyboardButtonData("Done", cbHome),
		),
	)
}

func encodeCounts(c models.VisitorCounts) string {
	return fmt.Sprintf("%d:%d:%d:%d", c.Adult, c.Child, c.Senior, c.Tourist)
}

func decodeCounts(raw string) (models.VisitorCounts, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 4 {
		return models.VisitorCounts{}, fmt.Errorf("visitor counts %q: want 4 fields", raw)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > maxPerCategory {
			return models.VisitorCounts{}, fmt.Errorf("visitor counts %q: bad field %q", raw, p)
		}
		n[i] = v
	}
	return models.VisitorCounts{Adult: n[0], Child: n[1], Senior: n[2], Tourist: n[3]}, nil
}
