// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by parameter types that register their own
// flags. [BindFlags] calls AddFlags instead of reading struct tags.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams creates a FlagSet bound to the tagged fields of
// params, which must be a pointer to a struct. Panics on invalid
// input: that is a programming error, not runtime data.
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag for each tagged field of params.
//
// Three tags control binding:
//
//   - flag:"name" or flag:"name,n": long name and optional shorthand.
//     Fields without a flag tag are skipped.
//   - desc:"help text": the flag's usage line.
//   - default:"value": parsed according to the field's type.
//
// Supported field types are string, bool, int, time.Duration,
// []string (comma separated) and []string with tag array:"true"
// (repeatable, no comma splitting).
//
// Struct fields whose pointer implements [FlagBinder] call AddFlags.
// Other embedded structs are bound recursively.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStructFields(value.Elem(), flagSet)
}

func bindStructFields(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	structType := structValue.Type()

	for i := range structType.NumField() {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if field.Type.Kind() == reflect.Struct && field.IsExported() && fieldValue.CanAddr() {
			if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
				binder.AddFlags(flagSet)
				continue
			}
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStructFields(fieldValue, flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}

		flagTag := field.Tag.Get("flag")
		if flagTag == "" {
			continue
		}
		if !fieldValue.CanAddr() {
			return fmt.Errorf("field %s: not addressable", field.Name)
		}

		name, shorthand, _ := strings.Cut(flagTag, ",")
		binding := flagBinding{
			name:         name,
			shorthand:    shorthand,
			description:  field.Tag.Get("desc"),
			defaultValue: field.Tag.Get("default"),
			repeatable:   field.Tag.Get("array") == "true",
		}
		if err := binding.bind(fieldValue, flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}

	return nil
}

type flagBinding struct {
	name         string
	shorthand    string
	description  string
	defaultValue string
	repeatable   bool
}

func (b flagBinding) bind(fieldValue reflect.Value, flagSet *pflag.FlagSet) error {
	switch target := fieldValue.Addr().Interface().(type) {
	case *string:
		flagSet.StringVarP(target, b.name, b.shorthand, b.defaultValue, b.description)

	case *bool:
		defaultValue := false
		if b.defaultValue != "" {
			parsed, err := strconv.ParseBool(b.defaultValue)
			if err != nil {
				return fmt.Errorf("default for --%s: %w", b.name, err)
			}
			defaultValue = parsed
		}
		flagSet.BoolVarP(target, b.name, b.shorthand, defaultValue, b.description)

	case *int:
		defaultValue := 0
		if b.defaultValue != "" {
			parsed, err := strconv.Atoi(b.defaultValue)
			if err != nil {
				return fmt.Errorf("default for --%s: %w", b.name, err)
			}
			defaultValue = parsed
		}
		flagSet.IntVarP(target, b.name, b.shorthand, defaultValue, b.description)

	case *time.Duration:
		var defaultValue time.Duration
		if b.defaultValue != "" {
			parsed, err := time.ParseDuration(b.defaultValue)
			if err != nil {
				return fmt.Errorf("default for --%s: %w", b.name, err)
			}
			defaultValue = parsed
		}
		flagSet.DurationVarP(target, b.name, b.shorthand, defaultValue, b.description)

	case *[]string:
		var defaultValue []string
		if b.defaultValue != "" {
			defaultValue = strings.Split(b.defaultValue, ",")
		}
		if b.repeatable {
			flagSet.StringArrayVarP(target, b.name, b.shorthand, defaultValue, b.description)
		} else {
			flagSet.StringSliceVarP(target, b.name, b.shorthand, defaultValue, b.description)
		}

	default:
		return fmt.Errorf("unsupported type %s for flag --%s", fieldValue.Type(), b.name)
	}
	return nil
}
