package retrieval

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ragsearch/internal/adapter/extract"
	"ragsearch/internal/adapter/loader"
	"ragsearch/internal/adapter/mongodb"
	"ragsearch/internal/adapter/sqldb"
	"ragsearch/internal/adapter/store"
	"ragsearch/internal/domain"
)

var validate = newValidator()

// newValidator reports fields by their configuration key.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if key := fld.Tag.Get("key"); key != "" {
			return key
		}
		return fld.Name
	})
	return v
}

func validateOptions(kind domain.Kind, opts any) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewConfigError(kind, err.Error())
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fmt.Sprintf("%q", fe.Field()))
	}
	return domain.NewConfigError(kind, "missing required key "+strings.Join(missing, ", "))
}

var kindOptions = map[domain.Kind]any{
	domain.KindAnalytical: sqldb.Options{},
	domain.KindRelational: sqldb.Options{},
	domain.KindDocument:   mongodb.Options{},
	domain.KindText:       loader.Options{},
	domain.KindPDF:        loader.Options{},
	domain.KindExtraction: extract.Options{},
	domain.KindKeyValue:   store.Options{},
}

// RequiredKeys lists the configuration keys kind needs besides "kind".
func RequiredKeys(kind Kind) []string {
	opts, ok := kindOptions[kind]
	if !ok {
		return nil
	}
	t := reflect.TypeOf(opts)
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if strings.Contains(f.Tag.Get("validate"), "required") {
			keys = append(keys, f.Tag.Get("key"))
		}
	}
	return keys
}
