package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/timekiosk/timekiosk/internal/model"
	"github.com/timekiosk/timekiosk/internal/store"
)

// SettingsInput is the admin payload for the settings singleton.
type SettingsInput struct {
	LogoURL      string `validate:"omitempty,max=2000"`
	WeekStartDay int    `validate:"gte=0,lte=6"`
	RemoteDBURL  string `validate:"omitempty,url"`
}

// Settings returns the settings singleton, or the defaults when nothing
// has been configured yet.
func (s *Service) Settings(ctx context.Context) (model.Settings, error) {
	doc, err := s.store.Get(ctx, model.CollectionSettings, model.SettingsID)
	if store.IsNotFound(err) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, err
	}
	var settings model.Settings
	if err := json.Unmarshal(doc.Body, &settings); err != nil {
		return model.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings replaces the settings singleton. Changing remoteDbUrl
// here is what starts, retargets, or stops replication: the manager
// watches the settings feed and reacts to the committed write.
func (s *Service) UpdateSettings(ctx context.Context, in SettingsInput) (model.Settings, error) {
	if err := s.validate.Struct(in); err != nil {
		return model.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	settings := model.Settings{
		ID:           model.SettingsID,
		LogoURL:      in.LogoURL,
		WeekStartDay: in.WeekStartDay,
		RemoteDBURL:  in.RemoteDBURL,
	}
	body, err := json.Marshal(settings)
	if err != nil {
		return model.Settings{}, fmt.Errorf("encode settings: %w", err)
	}
	if _, err := s.store.Upsert(ctx, model.CollectionSettings, body); err != nil {
		return model.Settings{}, err
	}
	return settings, nil
}
