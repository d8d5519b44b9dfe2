package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	kindsMu sync.RWMutex
	kinds   = map[string]struct{}{}
)

// RegisterKinds makes resource kind names acceptable in MemberConfig.Kind.
// Resource packages call it from init.
func RegisterKinds(names ...string) {
	kindsMu.Lock()
	defer kindsMu.Unlock()
	for _, n := range names {
		kinds[strings.ToLower(n)] = struct{}{}
	}
}

// Kinds returns the registered resource kind names, sorted.
func Kinds() []string {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// knownKind accepts any kind while nothing is registered, so the config
// package can be used without linking the resource initializers.
func knownKind(fl validator.FieldLevel) bool {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	if len(kinds) == 0 {
		return true
	}
	_, ok := kinds[strings.ToLower(fl.Field().String())]
	return ok
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("member_kind", knownKind)
	})
	return validate
}

// Validate checks cfg against its struct rules and returns an error listing
// every violated field.
func Validate(cfg *Config) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "unique":
		return fmt.Sprintf("%s must have unique %s values", field, fe.Param())
	case "member_kind":
		return fmt.Sprintf("%s: unknown kind %q (known: %s)", field, fmt.Sprint(fe.Value()), strings.Join(Kinds(), ", "))
	case "gt", "gte", "lte", "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
