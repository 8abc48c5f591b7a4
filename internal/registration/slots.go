package registration

import (
	"fmt"
	"time"

	"github.com/fau-events/internal/model"
)

// SlotDuration is the time reserved for each child at a photo event.
const SlotDuration = 10 * time.Minute

// PhotoSlots returns count consecutive HH:MM slots starting after the prior
// children already booked for an event that starts at eventTime.
func PhotoSlots(eventTime string, prior, count int) (model.StringList, error) {
	start, err := time.Parse(model.TimeLayout, eventTime)
	if err != nil {
		return nil, &model.ValidationError{Err: fmt.Errorf("event time %q is not HH:MM", eventTime)}
	}
	slots := make(model.StringList, count)
	for i := 0; i < count; i++ {
		slots[i] = start.Add(time.Duration(prior+i) * SlotDuration).Format(model.TimeLayout)
	}
	return slots, nil
}
