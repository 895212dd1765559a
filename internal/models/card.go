// internal/models/card.go
package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Position is a free placement inside a zone, in board pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImageURIs mirrors the image_uris object of a Scryfall card.
type ImageURIs struct {
	Small  string `json:"small,omitempty"`
	Normal string `json:"normal,omitempty"`
	Large  string `json:"large,omitempty"`
	PNG    string `json:"png,omitempty"`

	extra extraFields
}

type imageURIsFields ImageURIs

var imageKeys = []string{"small", "normal", "large", "png"}

func (u *ImageURIs) UnmarshalJSON(data []byte) error {
	var typed imageURIsFields
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	extra, err := splitExtra(data, imageKeys, nil)
	if err != nil {
		return err
	}
	*u = ImageURIs(typed)
	u.extra = extra
	return nil
}

func (u ImageURIs) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(imageURIsFields(u))
	if err != nil {
		return nil, err
	}
	return mergeExtra(typed, u.extra)
}

// CardFace is one face of a multi-faced card.
type CardFace struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost,omitempty"`
	TypeLine   string     `json:"type_line,omitempty"`
	OracleText string     `json:"oracle_text,omitempty"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`

	extra extraFields
}

type cardFaceFields CardFace

var cardFaceKeys = []string{"name", "mana_cost", "type_line", "oracle_text", "image_uris"}

func (f *CardFace) UnmarshalJSON(data []byte) error {
	var typed cardFaceFields
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	extra, err := splitExtra(data, cardFaceKeys, nil)
	if err != nil {
		return err
	}
	*f = CardFace(typed)
	f.extra = extra
	return nil
}

func (f CardFace) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(cardFaceFields(f))
	if err != nil {
		return nil, err
	}
	return mergeExtra(typed, f.extra)
}

// Card is a catalog payload plus the table-local fields the sync engine attaches.
// Catalog fields are never mutated once fetched; only Position is attached or cleared.
// Catalog keys without a typed field are carried through JSON unchanged.
type Card struct {
	CatalogID   string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	ManaCost    string     `json:"mana_cost,omitempty"`
	TypeLine    string     `json:"type_line,omitempty"`
	OracleText  string     `json:"oracle_text,omitempty"`
	ScryfallURI string     `json:"scryfall_uri,omitempty"`
	ImageURIs   *ImageURIs `json:"image_uris,omitempty"`
	CardFaces   []CardFace `json:"card_faces,omitempty"`

	// InstanceID identifies one physical copy. It is assigned when a deck is built
	// and is zero for cards that came from an older peer.
	InstanceID uuid.UUID `json:"instance_id,omitzero"`
	Position   *Position `json:"position,omitempty"`

	extra extraFields
}

type cardFields Card

var (
	cardKeys  = []string{"id", "name", "mana_cost", "type_line", "oracle_text", "scryfall_uri", "image_uris", "card_faces"}
	tableKeys = []string{"instance_id", "position"}
)

func (c *Card) UnmarshalJSON(data []byte) error {
	var typed cardFields
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	extra, err := splitExtra(data, cardKeys, tableKeys)
	if err != nil {
		return err
	}
	*c = Card(typed)
	c.extra = extra
	return nil
}

func (c Card) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(cardFields(c))
	if err != nil {
		return nil, err
	}
	return mergeExtra(typed, c.extra)
}

// Extra returns the raw value of a catalog key that has no typed field.
func (c Card) Extra(key string) (json.RawMessage, bool) {
	v, ok := c.extra[key]
	return v, ok
}

// extraFields holds object members the typed view would not reproduce, compacted.
// It is nil when there are none and is never modified after decoding.
type extraFields map[string]json.RawMessage

// splitExtra returns the members of data the typed view drops on encode: unknown keys,
// and typed keys whose value is empty. Keys in owned are always left to the typed view.
func splitExtra(data []byte, typed, owned []string) (extraFields, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range owned {
		delete(all, k)
	}
	extra := make(extraFields, len(all))
	for k, v := range all {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, err
		}
		extra[k] = buf.Bytes()
	}
	for _, k := range typed {
		if v, ok := extra[k]; ok && !emptyJSON(v) {
			delete(extra, k)
		}
	}
	if len(extra) == 0 {
		return nil, nil
	}
	return extra, nil
}

func emptyJSON(v json.RawMessage) bool {
	switch string(v) {
	case `""`, `null`, `[]`, `{}`:
		return true
	}
	return false
}

func mergeExtra(typed []byte, extra extraFields) ([]byte, error) {
	if len(extra) == 0 {
		return typed, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(typed, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// WithPosition returns a copy of the card placed at pos (nil clears the placement).
func (c Card) WithPosition(pos *Position) Card {
	if pos != nil {
		p := *pos
		pos = &p
	}
	c.Position = pos
	return c
}

// SmallImage returns the small artwork URL, looking at the first face for double-faced cards.
func (c Card) SmallImage() string {
	if c.ImageURIs != nil {
		return c.ImageURIs.Small
	}
	if len(c.CardFaces) > 0 && c.CardFaces[0].ImageURIs != nil {
		return c.CardFaces[0].ImageURIs.Small
	}
	return ""
}

// NameKey is the normalized name used for caching and case-insensitive lookups.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
