package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_password(t *testing.T) {
	var usr User
	require.NoError(t, usr.SetPassword("s3cretW0rd"))
	require.NotEmpty(t, usr.PasswordHash)

	assert.NoError(t, usr.CheckPassword("s3cretW0rd"))
	assert.Error(t, usr.CheckPassword("wrong"))
}

func TestUser_roleHelpers(t *testing.T) {
	tests := []struct {
		name         string
		roles        []string
		isAdmin      bool
		isInstructor bool
		isStudent    bool
	}{
		{name: "no roles"},
		{name: "student", roles: []string{RoleStudent}, isStudent: true},
		{name: "instructor", roles: []string{RoleInstructor}, isInstructor: true},
		{name: "all", roles: AllRoles, isAdmin: true, isInstructor: true, isStudent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr := User{Roles: tt.roles}
			assert.Equal(t, tt.isAdmin, usr.IsAdmin())
			assert.Equal(t, tt.isInstructor, usr.IsInstructor())
			assert.Equal(t, tt.isStudent, usr.IsStudent())
		})
	}
}

func TestNewUser_Validate(t *testing.T) {
	valid := func() NewUser {
		return NewUser{
			Name:     "Jane Doe",
			Username: "jane",
			Email:    "jane@darasa.test",
			Password: "Str0ngPassword",
			Roles:    []string{RoleStudent},
		}
	}

	t.Run("ok", func(t *testing.T) {
		nu := valid()
		assert.NoError(t, nu.Validate())
	})
	t.Run("bad email", func(t *testing.T) {
		nu := valid()
		nu.Email = "nope"
		assert.Error(t, nu.Validate())
	})
	t.Run("short password", func(t *testing.T) {
		nu := valid()
		nu.Password = "short"
		assert.Error(t, nu.Validate())
	})
	t.Run("unknown role", func(t *testing.T) {
		nu := valid()
		nu.Roles = []string{"superhero:"}
		assert.Error(t, nu.Validate())
	})
	t.Run("username is lowercased", func(t *testing.T) {
		nu := valid()
		nu.Username = "  JaNe "
		require.NoError(t, nu.Validate())
		assert.Equal(t, "jane", nu.Username)
	})
}
