package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"

	"uniasset/pkg/uniasset"
)

const maxBodyBytes = 10 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("product_type", validateProductType)
	_ = v.RegisterValidation("chain", validateChain)
	_ = v.RegisterValidation("iso4217", validateISO4217)
	return v
}

func validateProductType(fl validator.FieldLevel) bool {
	_, ok := uniasset.ParseProductType(fl.Field().String())
	return ok
}

func validateChain(fl validator.FieldLevel) bool {
	_, ok := uniasset.ParseChain(fl.Field().String())
	return ok
}

func validateISO4217(fl validator.FieldLevel) bool {
	return money.GetCurrency(strings.ToUpper(fl.Field().String())) != nil
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// Failures come back as coded errors ready for writeErrorResponse.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return uniasset.NewError(uniasset.ErrCodeInvalidInput, "request body is required")
		}
		return uniasset.WrapError(uniasset.ErrCodeInvalidInput, "invalid request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return uniasset.WrapError(uniasset.ErrCodeValidation, "invalid request", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "product_type":
			msgs = append(msgs, fmt.Sprintf("%s: unknown product type %q", field, fe.Value()))
		case "chain":
			msgs = append(msgs, fmt.Sprintf("%s: unsupported chain %q", field, fe.Value()))
		case "iso4217":
			msgs = append(msgs, fmt.Sprintf("%s: unknown currency %q", field, fe.Value()))
		default:
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
			}
		}
	}
	return uniasset.WrapError(uniasset.ErrCodeValidation, strings.Join(msgs, "; "), err)
}
