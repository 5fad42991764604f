package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRoleSetNormalizes(t *testing.T) {
	set := NewRoleSet([]string{" admin ", "Analyst", "REQUESTER", "intruder", ""})

	assert.True(t, set.IsAdmin())
	assert.True(t, set.IsAnalyst())
	assert.True(t, set.Has(RoleRequester))
	assert.Len(t, set, 3, "unknown names are dropped")
}

func TestRoleSetEmpty(t *testing.T) {
	set := NewRoleSet(nil)
	assert.False(t, set.IsAdmin())
	assert.False(t, set.IsAnalyst())
	assert.Empty(t, set.Names())
}

func TestUserFullName(t *testing.T) {
	user := User{FirstNames: "María José", LastName: "Pérez"}
	assert.Equal(t, "María José Pérez", user.FullName())

	noLast := User{FirstNames: "Admin"}
	assert.Equal(t, "Admin", noLast.FullName())
}
