package validators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BindingMessage turns the error returned by gin's ShouldBind into something
// that can be shown to a client
func BindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", jsonName(fe)))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s is too long", jsonName(fe)))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", jsonName(fe)))
		}
	}

	return strings.Join(msgs, ", ")
}

func jsonName(fe validator.FieldError) string {
	f := fe.Field()
	if f == "" {
		return "field"
	}

	return strings.ToLower(f[:1]) + f[1:]
}
