package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"student", "instructor", "admin"} {
		role, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, s, role.String())
	}

	for _, s := range []string{"", "root", "Admin", "STUDENT"} {
		_, err := ParseRole(s)
		assert.Error(t, err, "role %q", s)
	}
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleStudent))
	assert.True(t, RoleAdmin.AtLeast(RoleInstructor))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleInstructor.AtLeast(RoleStudent))
	assert.True(t, RoleStudent.AtLeast(RoleStudent))

	assert.False(t, RoleStudent.AtLeast(RoleInstructor))
	assert.False(t, RoleStudent.AtLeast(RoleAdmin))
	assert.False(t, RoleInstructor.AtLeast(RoleAdmin))
}
