// SPDX-License-Identifier: EPL-2.0

package module

import (
	"encoding/json"
	"fmt"
)

// Preset is the JSON-shaped record exchanged with an external preset
// store. The engine consumes only Modules; every other field passes
// through opaquely so stores can round-trip their own metadata.
type Preset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Modules     []Options `json:"modules"`
	CreatedAt   string    `json:"createdAt,omitempty"`
	UpdatedAt   string    `json:"updatedAt,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	IsDefault   bool      `json:"isDefault,omitempty"`
}

// ParsePreset decodes a stored preset.
func ParsePreset(data []byte) (Preset, error) {
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("parsing preset: %w", err)
	}
	return p, nil
}

// Encode serializes the preset for storage.
func (p Preset) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding preset: %w", err)
	}
	return data, nil
}
