package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/relay-sequencer/internal/player"
)

// Keys of the player's start-up selection.
const (
	PlayerNamespace = "playerDefaults"
	KeySequenceID   = "sequenceID"
	KeySpeed        = "speed"
)

// PlayerDefaults persists the player's start-up sequence and speed.
// It implements player.DefaultsLoader.
type PlayerDefaults struct {
	repo Repository
}

// NewPlayerDefaults wraps repo.
func NewPlayerDefaults(repo Repository) *PlayerDefaults {
	return &PlayerDefaults{repo: repo}
}

// LoadDefaults returns the stored selection. A key that was never written
// takes the compiled-in default; any other read error is returned so the
// caller can fall back as a whole.
func (d *PlayerDefaults) LoadDefaults(ctx context.Context) (player.Defaults, error) {
	id, err := d.getOr(ctx, KeySequenceID, player.DefaultSequenceID)
	if err != nil {
		return player.Defaults{}, err
	}
	speedMS, err := d.getOr(ctx, KeySpeed, player.DefaultSpeed.Milliseconds())
	if err != nil {
		return player.Defaults{}, err
	}
	return player.Defaults{SequenceID: id, Speed: speedMS}, nil
}

// SaveDefaults stores both keys atomically. Values are written as given;
// clamping is the caller's job.
func (d *PlayerDefaults) SaveDefaults(ctx context.Context, defaults player.Defaults) error {
	err := d.repo.PutInts(ctx, PlayerNamespace, map[string]int{
		KeySequenceID: defaults.SequenceID,
		KeySpeed:      defaults.Speed,
	})
	if err != nil {
		return fmt.Errorf("saving player defaults: %w", err)
	}
	return nil
}

func (d *PlayerDefaults) getOr(ctx context.Context, key string, fallback int) (int, error) {
	v, err := d.repo.GetInt(ctx, PlayerNamespace, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return fallback, nil
	case err != nil:
		return 0, fmt.Errorf("loading player defaults: %w", err)
	}
	return v, nil
}
