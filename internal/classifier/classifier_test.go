// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		wantKind model.GroupKind
		wantBase string
	}{
		{"10a-teachers", model.KindTeacherShadow, "10a"},
		{"p_alle_mathe", model.KindProject, "alle_mathe"},
		{"10a", model.KindClass, "10a"},
		{"k1", model.KindClass, "k1"},
		{"ks2", model.KindClass, "ks2"},
		{"j1", model.KindClass, "j1"},
		{"xyz-unknown", model.KindOther, "xyz-unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.name)
			assert.Equal(t, tc.wantKind, got.Kind)
			assert.Equal(t, tc.wantBase, got.BaseName)
		})
	}
}

func TestClassifyOrderingTeacherBeforeProject(t *testing.T) {
	got := Classify("p_10a-teachers")
	assert.Equal(t, model.KindTeacherShadow, got.Kind)
	assert.Equal(t, "p_10a", got.BaseName)
}
