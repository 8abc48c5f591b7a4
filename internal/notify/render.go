package notify

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fau-events/internal/model"
)

// Message is a rendered notification ready for a transport.
type Message struct {
	To      string
	Subject string
	Body    string
}

var norwegianMonths = [...]string{
	"januar", "februar", "mars", "april", "mai", "juni",
	"juli", "august", "september", "oktober", "november", "desember",
}

func languageTag(lang model.Language) language.Tag {
	if lang == model.LanguageEnglish {
		return language.English
	}
	return language.Norwegian
}

func formatDate(event *model.Event, lang model.Language) string {
	d := event.Date
	if lang == model.LanguageEnglish {
		return d.Format("Monday, January 2, 2006")
	}
	return d.Format("2.") + " " + norwegianMonths[d.Month()-1] + " " + d.Format("2006")
}

// Render builds the localized message of the given kind for one registrant.
func Render(kind model.NotificationKind, reg *model.Registration, event *model.Event) *Message {
	p := message.NewPrinter(languageTag(reg.Language))

	var subject, intro string
	switch kind {
	case model.NotificationCancellation:
		subject = p.Sprintf(keyCancellationSubject, event.Title)
		intro = p.Sprintf(keyCancellationBody, reg.Name, event.Title)
	case model.NotificationReminder:
		subject = p.Sprintf(keyReminderSubject, event.Title)
		intro = p.Sprintf(keyReminderBody, reg.Name, event.Title)
	default:
		subject = p.Sprintf(keyConfirmationSubject, event.Title)
		intro = p.Sprintf(keyConfirmationBody, reg.Name, event.Title)
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString(p.Sprintf(keyDetails, formatDate(event, reg.Language), event.Time, event.DisplayLocation(), reg.AttendeeCount))

	if kind != model.NotificationCancellation && len(reg.TimeSlots) > 0 {
		b.WriteString(p.Sprintf(keySlotsHeading))
		for i, slot := range reg.TimeSlots {
			name := ""
			if i < len(reg.ChildrenNames) {
				name = reg.ChildrenNames[i]
			}
			b.WriteString(p.Sprintf(keySlotLine, slot, name))
		}
	}
	b.WriteString(p.Sprintf(keySignature))

	return &Message{To: reg.Email, Subject: subject, Body: b.String()}
}
