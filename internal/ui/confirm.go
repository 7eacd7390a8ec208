package ui

import (
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/idlab-discover/fairleak/internal/apperr"
)

// Confirm asks a yes/no question. A declined prompt returns apperr.ErrCancelled.
func Confirm(title, description string) error {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&ok).
				Affirmative("Yes").
				Negative("No"),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return apperr.ErrCancelled
		}
		return err
	}
	if !ok {
		return apperr.ErrCancelled
	}
	return nil
}
