package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTransition(t *testing.T) {
	assert.Equal(t, FirstPublish, DetectTransition(StatusDraft, StatusPublished))
	assert.Equal(t, FirstPublish, DetectTransition(StatusArchived, StatusPublished))
	assert.Equal(t, Republish, DetectTransition(StatusPublished, StatusPublished))
	assert.Equal(t, EditOnly, DetectTransition(StatusDraft, StatusDraft))
	assert.Equal(t, EditOnly, DetectTransition(StatusPublished, StatusDraft))
	assert.Equal(t, EditOnly, DetectTransition(StatusPublished, StatusArchived))
}

func TestNextTheme(t *testing.T) {
	assert.Equal(t, "dark", NextTheme("light"))
	assert.Equal(t, "light", NextTheme("ocean"), "palette wraps around")
	assert.Equal(t, "light", NextTheme("neon"), "unknown names restart the cycle")
}

func TestFormKindPublicPath(t *testing.T) {
	assert.Equal(t, "/f/", KindStandard.PublicPath())
	assert.Equal(t, "/identity-collision/", KindIdentityCollision.PublicPath())
}

func TestFieldTypeValid(t *testing.T) {
	assert.True(t, FieldRanking.Valid())
	assert.False(t, FieldType("slider").Valid())
	assert.True(t, FieldSelect.HasOptions())
	assert.False(t, FieldText.HasOptions())
}
