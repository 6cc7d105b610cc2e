package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/pkg/errors"
	validator "gopkg.in/go-playground/validator.v9"
)

var check = validator.New()

func mustRegister(err error) {
	if err != nil {
		panic(fmt.Sprintf("Register custom validator: %v", err))
	}
}

func init() {
	mustRegister(check.RegisterValidation("div", func(fl validator.FieldLevel) bool {
		param := fl.Param()
		if param == "" {
			panic("div validator must have a param (div=64 for dividable by 64)")
		}
		mod, err := strconv.Atoi(param)
		if err != nil {
			panic(fmt.Sprintf("Parse divider: %v", err))
		}
		return fl.Field().Int()%int64(mod) == 0
	}))
	mustRegister(check.RegisterValidation("arn", func(fl validator.FieldLevel) bool {
		str := fl.Field().String()
		_, err := arn.Parse(str)
		return err == nil
	}))
	mustRegister(check.RegisterValidation("json", func(fl validator.FieldLevel) bool {
		return json.Valid([]byte(fl.Field().String()))
	}))
}

// Validate checks the input fields of a resource definition against the
// validation rules declared in validate struct tags:
//
//   MinTTL int `terrane:"input" validate:"gte=0"`
//
// Rules are only applied to fields that are set, a required but missing
// field is reported by the decoder instead. The returned error names the
// offending field.
func Validate(def interface{}) error {
	v := reflect.ValueOf(def)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return validateStruct(v)
}

func validateStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := v.Field(i)
		for fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				fv = reflect.Value{}
				break
			}
			fv = fv.Elem()
		}
		if !fv.IsValid() {
			continue
		}
		if tag, ok := f.Tag.Lookup("validate"); ok && !fv.IsZero() {
			if err := validate(fv.Interface(), tag); err != nil {
				return errors.Wrap(err, fieldName(f))
			}
		}
		if fv.Kind() == reflect.Struct {
			if err := validateStruct(fv); err != nil {
				return errors.Wrap(err, fieldName(f))
			}
		}
	}
	return nil
}

var once sync.Once
var formats map[string]string

func validate(v interface{}, tag string) error {
	err := check.Var(v, tag)
	if err == nil {
		return nil
	}
	once.Do(initFormatters)
	errs := err.(validator.ValidationErrors)
	fe := errs[0]
	format, ok := formats[fe.Tag()]
	if !ok {
		return err
	}
	if !strings.Contains(format, "%") {
		return errors.New(format)
	}
	return fmt.Errorf(format, fe.Param())
}

func initFormatters() {
	formats = map[string]string{
		"gte":   "must be %v or more",
		"gt":    "must be more than %v",
		"lte":   "must be %v or less",
		"lt":    "must be less than %v",
		"oneof": "must be one of: [%v]",
		"json":  "must be valid json",

		// custom
		"div": "must be divisible by %v",
		"arn": "must be a valid arn (https://docs.aws.amazon.com/general/latest/gr/aws-arns-and-namespaces.html)",
	}
}
