package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-pulse/internal/game"
	"github.com/pixil98/go-pulse/internal/storage"
)

// TuningConfig selects the tuning a host starts with. Without profiles the built in
// defaults are used.
type TuningConfig struct {
	Profiles AssetConfig[*game.Profile] `json:"profiles"`
	Profile  string                     `json:"profile"`
}

func (c *TuningConfig) validate() error {
	el := errors.NewErrorList()

	if c.Profiles.Path != "" {
		el.Add(c.Profiles.Validate("tuning.profiles"))
	} else if c.Profile != "" {
		el.Add(fmt.Errorf("tuning.profile needs tuning.profiles.path"))
	}

	return el.Err()
}

// build returns the starting tuning and, when profiles are configured, a menu of them.
func (c *TuningConfig) build() (game.Tuning, *storage.Menu[*game.Profile], error) {
	if c.Profiles.Path == "" {
		return game.DefaultTuning(), nil, nil
	}

	store, err := c.Profiles.BuildFileStore(game.ProfileKind)
	if err != nil {
		return game.Tuning{}, nil, fmt.Errorf("creating profile store: %w", err)
	}
	menu := storage.NewMenu[*game.Profile](store)

	if c.Profile == "" {
		return game.DefaultTuning(), menu, nil
	}

	profile, ok := store.Get(c.Profile)
	if !ok {
		return game.Tuning{}, nil, fmt.Errorf("tuning profile %q not found", c.Profile)
	}
	t, err := profile.Tuning()
	if err != nil {
		return game.Tuning{}, nil, fmt.Errorf("tuning profile %q: %w", c.Profile, err)
	}
	return t, menu, nil
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore(kind string) (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path, kind)
}
