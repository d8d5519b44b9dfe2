// Package prompt wraps promptui for the interactive config wizard.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user presses Ctrl+C or Ctrl+D.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err came from the user leaving a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err != nil && IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for free text with a default.
func Input(label, defaultValue string) (string, error) {
	p := promptui.Prompt{Label: label, Default: defaultValue}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputValidated prompts for text that must pass validate.
func InputValidated(label, defaultValue string, validate func(string) error) (string, error) {
	p := promptui.Prompt{Label: label, Default: defaultValue, Validate: validate}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputDuration prompts for a positive Go duration such as "30s".
func InputDuration(label string, defaultValue time.Duration) (time.Duration, error) {
	result, err := InputValidated(label, defaultValue.String(), ValidateDuration)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(result)
}

// ValidateDuration accepts positive durations.
func ValidateDuration(input string) error {
	d, err := time.ParseDuration(strings.TrimSpace(input))
	if err != nil {
		return fmt.Errorf("must be a duration like 30s or 1m")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// ValidateRequired rejects blank input.
func ValidateRequired(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

// Confirm asks a yes/no question. An empty answer picks defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	p := promptui.Prompt{Label: fmt.Sprintf("%s [%s]", label, hint)}
	result, err := p.Run()
	if err != nil {
		return false, wrapError(err)
	}
	return ParseYesNo(result, defaultYes), nil
}

// ParseYesNo interprets a Confirm answer.
func ParseYesNo(answer string, defaultYes bool) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ConfirmWithForce skips the question when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

// Option is one entry of a Select list.
type Option struct {
	Label       string
	Value       string
	Description string
}

// Select prompts for one option and returns its Value.
func Select(label string, options []Option) (string, error) {
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "* {{ .Label | green }}",
		Details:  `{{ if .Description }}{{ "Description:" | faint }}	{{ .Description }}{{ end }}`,
	}

	p := promptui.Select{Label: label, Items: options, Templates: templates, Size: 10}
	i, _, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}
	return options[i].Value, nil
}
