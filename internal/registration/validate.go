package registration

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/fau-events/internal/model"
)

func validateRequest(req *model.RegisterRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.EventID, validation.Required, is.UUID),
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&req.Phone, validation.Length(0, 50)),
		validation.Field(&req.AttendeeCount, validation.Min(1), validation.Max(model.MaxAttendeesPerRegistration)),
		validation.Field(&req.Comments, validation.Length(0, 2000)),
		validation.Field(&req.Language, validation.In(model.LanguageNorwegian, model.LanguageEnglish)),
		validation.Field(&req.ChildrenNames, validation.Length(0, model.MaxAttendeesPerRegistration)),
	)
	if err != nil {
		return &model.ValidationError{Err: err}
	}
	return nil
}
