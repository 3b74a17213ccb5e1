package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/deckr/pkg/color"
	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern   = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?$`)
	pageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("page_name", func(fl validator.FieldLevel) bool {
			return pageNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("hex_color", func(fl validator.FieldLevel) bool {
			return color.IsHex(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateConfig performs schema and cross-field validation on the layout.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return deckerrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	pages := make(map[string]int, len(cfg.Pages))
	for i, page := range cfg.Pages {
		if _, exists := pages[page.Name]; exists {
			return deckerrors.NewValidationError(fieldForPage(i, "name"), fmt.Sprintf("duplicate page name %q", page.Name), nil)
		}
		pages[page.Name] = i
	}

	if start := cfg.Settings.StartPage; start != "" {
		if _, ok := pages[start]; !ok {
			return deckerrors.NewValidationError("settings.start_page", fmt.Sprintf("references unknown page %q", start), nil)
		}
	}

	for i, page := range cfg.Pages {
		if err := validatePage(i, page, pages); err != nil {
			return err
		}
	}

	return nil
}

func validatePage(pageIndex int, page Page, pages map[string]int) error {
	slots := make(map[int]int, len(page.Keys))
	for i, key := range page.Keys {
		slot := key.Slot(i)
		if prev, taken := slots[slot]; taken {
			return deckerrors.NewValidationError(fieldForKey(pageIndex, i, "position"),
				fmt.Sprintf("position %d is already used by keys[%d]", slot, prev), nil)
		}
		slots[slot] = i

		if key.OnPress == nil {
			continue
		}
		action := key.OnPress
		switch {
		case action.Page == "" && strings.TrimSpace(action.Command) == "":
			return deckerrors.NewValidationError(fieldForKey(pageIndex, i, "on_press"), "needs a page or a command", nil)
		case action.Page != "" && action.Command != "":
			return deckerrors.NewValidationError(fieldForKey(pageIndex, i, "on_press"), "page and command are mutually exclusive", nil)
		case action.Page != "":
			if _, ok := pages[action.Page]; !ok {
				return deckerrors.NewValidationError(fieldForKey(pageIndex, i, "on_press.page"),
					fmt.Sprintf("references unknown page %q", action.Page), nil)
			}
		}
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return deckerrors.NewValidationError(field, msg, err)
	}

	return deckerrors.NewValidationError("config", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForPage(index int, field string) string {
	return fmt.Sprintf("pages[%d].%s", index, field)
}

func fieldForKey(page, key int, field string) string {
	return fmt.Sprintf("pages[%d].keys[%d].%s", page, key, field)
}
