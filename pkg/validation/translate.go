package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator reading the "binding" tags used on request DTOs
// and reporting fields by their JSON names.
func New() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	UseJSONNames(v)
	return v
}

func UseJSONNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// FieldErrors turns a validator error into a field -> message map. It
// returns nil for errors that did not come from the validator.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		if _, seen := out[field]; seen {
			continue
		}
		if messages := CustomMessage(field); messages != nil {
			if msg, ok := messages[e.Tag()]; ok {
				out[field] = msg
				continue
			}
		}
		out[field] = DefaultMessage(field, e.Tag(), e.Param())
	}
	return out
}
