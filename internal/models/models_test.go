package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZonePredicates(t *testing.T) {
	for _, z := range Zones {
		assert.True(t, z.Valid(), z)
	}
	assert.False(t, Zone("library").Valid())
	assert.True(t, ZoneBattlefield.FreelyPositioned())
	assert.True(t, ZoneHand.FreelyPositioned())
	assert.False(t, ZoneGraveyard.FreelyPositioned())
	assert.True(t, ZoneDeck.FaceDown())
	assert.False(t, ZoneHand.FaceDown())
}

func TestWithPositionCopies(t *testing.T) {
	pos := &Position{X: 1, Y: 2}
	c := Card{Name: "Island"}.WithPosition(pos)
	pos.X = 99
	require.NotNil(t, c.Position)
	assert.Equal(t, 1.0, c.Position.X)
	assert.Nil(t, c.WithPosition(nil).Position)
}

func TestCardJSONOmitsTableFieldsWhenUnset(t *testing.T) {
	data, err := json.Marshal(Card{Name: "Island", CatalogID: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","name":"Island"}`, string(data))

	id := uuid.New()
	data, err = json.Marshal(Card{Name: "Island", InstanceID: id, Position: &Position{X: 3, Y: 4}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Island","instance_id":"`+id.String()+`","position":{"x":3,"y":4}}`, string(data))
}

func TestCardKeepsUntypedCatalogFields(t *testing.T) {
	raw := `{
		"object": "card",
		"name": "Delver of Secrets",
		"set": "isd",
		"mana_cost": "",
		"prices": {"usd": "1.00", "eur": null},
		"image_uris": {"small": "s.jpg", "art_crop": "a.jpg"},
		"card_faces": [
			{"name": "Delver of Secrets", "flavor_text": "f"},
			{"name": "Insectile Aberration", "colors": ["U"]}
		],
		"instance_id": "` + uuid.Nil.String() + `"
	}`

	var c Card
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	assert.Equal(t, "Delver of Secrets", c.Name)
	assert.Equal(t, "s.jpg", c.SmallImage())
	set, ok := c.Extra("set")
	require.True(t, ok)
	assert.JSONEq(t, `"isd"`, string(set))
	_, ok = c.Extra("name")
	assert.False(t, ok)

	id := uuid.New()
	placed := c.WithPosition(&Position{X: 5, Y: 6})
	placed.InstanceID = id
	data, err := json.Marshal(placed)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"object": "card",
		"name": "Delver of Secrets",
		"set": "isd",
		"mana_cost": "",
		"prices": {"usd": "1.00", "eur": null},
		"image_uris": {"small": "s.jpg", "art_crop": "a.jpg"},
		"card_faces": [
			{"name": "Delver of Secrets", "flavor_text": "f"},
			{"name": "Insectile Aberration", "colors": ["U"]}
		],
		"instance_id": "`+id.String()+`",
		"position": {"x": 5, "y": 6}
	}`, string(data))

	var again Card
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, placed, again)
}

func TestCardWithoutExtrasDecodesToPlainValue(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Island","image_uris":{"small":"s"}}`), &c))
	assert.Equal(t, Card{Name: "Island", ImageURIs: &ImageURIs{Small: "s"}}, c)
}

func TestSmallImageFallsBackToFirstFace(t *testing.T) {
	c := Card{CardFaces: []CardFace{{Name: "Front", ImageURIs: &ImageURIs{Small: "front.jpg"}}}}
	assert.Equal(t, "front.jpg", c.SmallImage())
	assert.Equal(t, "", Card{}.SmallImage())
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, "sol ring", NameKey("  Sol Ring "))
}
