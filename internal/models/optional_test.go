package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patch struct {
	FirstName Optional[string]  `json:"first_name"`
	Gender    Optional[*string] `json:"gender"`
	Children  Optional[int]     `json:"number_of_children"`
}

func TestOptionalTracksPresence(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"first_name":"Ana","gender":null}`), &p))

	name, ok := p.FirstName.Get()
	assert.True(t, ok)
	assert.Equal(t, "Ana", name)

	assert.True(t, p.Gender.Set)
	assert.Nil(t, p.Gender.Value)

	assert.False(t, p.Children.Set)
}

func TestOptionalApply(t *testing.T) {
	dst := "before"
	assert.False(t, Optional[string]{}.Apply(&dst))
	assert.Equal(t, "before", dst)

	assert.True(t, Some("after").Apply(&dst))
	assert.Equal(t, "after", dst)
}

func TestAgeAt(t *testing.T) {
	dob := time.Date(2000, time.June, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 23, AgeAt(dob, time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, AgeAt(dob, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, AgeAt(dob, time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRoleLabels(t *testing.T) {
	assert.Equal(t, "Becaria", RoleScholar.Label())
	assert.True(t, RoleSPCA.Valid())
	assert.False(t, Role("ROOT").Valid())
	assert.Equal(t, "", Role("ROOT").Label())
}
