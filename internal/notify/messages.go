package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	keyConfirmationSubject = "confirmation.subject"
	keyConfirmationBody    = "confirmation.body"
	keyCancellationSubject = "cancellation.subject"
	keyCancellationBody    = "cancellation.body"
	keyReminderSubject     = "reminder.subject"
	keyReminderBody        = "reminder.body"
	keyDetails             = "details"
	keySlotsHeading        = "slots.heading"
	keySlotLine            = "slots.line"
	keySignature           = "signature"
)

func init() {
	en := language.English
	message.SetString(en, keyConfirmationSubject, "Registration confirmed: %s")
	message.SetString(en, keyConfirmationBody, "Hi %s,\n\nThank you for registering for %s. We look forward to seeing you.\n")
	message.SetString(en, keyCancellationSubject, "Cancelled: %s")
	message.SetString(en, keyCancellationBody, "Hi %s,\n\nUnfortunately %s has been cancelled. Your registration has been kept on file and you do not need to do anything.\n")
	message.SetString(en, keyReminderSubject, "Reminder: %s tomorrow")
	message.SetString(en, keyReminderBody, "Hi %s,\n\nThis is a reminder that %s takes place tomorrow.\n")
	message.SetString(en, keyDetails, "\nDate: %s\nTime: %s\nLocation: %s\nAttendees: %d\n")
	message.SetString(en, keySlotsHeading, "\nPhoto times:\n")
	message.SetString(en, keySlotLine, "  %s: %s\n")
	message.SetString(en, keySignature, "\nBest regards,\nThe parent council (FAU)\n")

	no := language.Norwegian
	message.SetString(no, keyConfirmationSubject, "Påmelding bekreftet: %s")
	message.SetString(no, keyConfirmationBody, "Hei %s,\n\nTakk for påmeldingen til %s. Vi gleder oss til å se deg.\n")
	message.SetString(no, keyCancellationSubject, "Avlyst: %s")
	message.SetString(no, keyCancellationBody, "Hei %s,\n\nDessverre er %s avlyst. Påmeldingen din er registrert og du trenger ikke gjøre noe.\n")
	message.SetString(no, keyReminderSubject, "Påminnelse: %s i morgen")
	message.SetString(no, keyReminderBody, "Hei %s,\n\nDette er en påminnelse om at %s er i morgen.\n")
	message.SetString(no, keyDetails, "\nDato: %s\nTid: %s\nSted: %s\nAntall: %d\n")
	message.SetString(no, keySlotsHeading, "\nTidspunkt for fotografering:\n")
	message.SetString(no, keySlotLine, "  %s: %s\n")
	message.SetString(no, keySignature, "\nVennlig hilsen\nForeldrerådets arbeidsutvalg (FAU)\n")
}
