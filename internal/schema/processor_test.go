// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

func TestProcessorFirstMatchWins(t *testing.T) {
	schemas := []model.NamingSchema{
		{
			ID:                "specific",
			MatchPattern:      `^p_(?P<name>alle_.+)$`,
			IdnumberTemplate:  "kc_specific_{name}",
			ShortnameTemplate: "{name}",
		},
		{
			ID:                "catchall",
			MatchPattern:      `^p_(?P<name>.+)$`,
			IdnumberTemplate:  "kc_catchall_{name}",
			ShortnameTemplate: "{name}",
		},
	}
	p := NewProcessor(schemas, NewTransformer(nil))

	match, err := p.Process("p_alle_mathe", "group-1")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "specific", match.SchemaID)
	assert.Equal(t, "kc_specific_alle_mathe", match.CourseIdnumber)
}

func TestProcessorNoMatchReturnsNilNil(t *testing.T) {
	schemas := []model.NamingSchema{
		{ID: "class", MatchPattern: `^\d+[a-z]?$`, IdnumberTemplate: "kc_{name}"},
	}
	p := NewProcessor(schemas, NewTransformer(nil))

	match, err := p.Process("not-a-class", "group-1")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestProcessorUnnamedCaptureGroups(t *testing.T) {
	schemas := []model.NamingSchema{
		{ID: "class", MatchPattern: `^(\d+)([a-z]?)$`, IdnumberTemplate: "kc_{1}_{2}"},
	}
	p := NewProcessor(schemas, NewTransformer(nil))

	match, err := p.Process("10a", "group-1")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "kc_10_a", match.CourseIdnumber)
}

func TestProcessorIsDeterministic(t *testing.T) {
	schemas := DefaultSchemas()
	p := NewProcessor(schemas, NewTransformer(nil))

	first, err := p.Process("p_jones_mathe_10a", "group-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	for i := 0; i < 10; i++ {
		again, err := p.Process("p_jones_mathe_10a", "group-1")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestProcessorRoleMapCarriesThrough(t *testing.T) {
	schemas := []model.NamingSchema{
		{
			ID:                "class",
			MatchPattern:      `^(?P<name>\d+[a-z]?)$`,
			IdnumberTemplate:  "kc_{name}",
			ShortnameTemplate: "{name}",
			RoleMap:           model.RoleMap{"default": model.RoleStudent, "teacher": model.RoleEditingTeacher},
		},
	}
	p := NewProcessor(schemas, NewTransformer(nil))

	match, err := p.Process("10a", "group-1")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, model.RoleStudent, match.RoleMap["default"])
	assert.Equal(t, model.RoleEditingTeacher, match.RoleMap["teacher"])
}
