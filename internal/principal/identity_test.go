package principal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgate/pkg/problems"
)

func TestParseIdentity(t *testing.T) {
	valid := []struct {
		in   string
		want Identity
	}{
		{in: "site/admin", want: Identity{UserType: "site", Username: "admin"}},
		{in: "/site/admin", want: Identity{UserType: "site", Username: "admin"}},
		{in: "site/admin/", want: Identity{UserType: "site", Username: "admin"}},
		{in: "/site/admin/", want: Identity{UserType: "site", Username: "admin"}},
		{in: "backoffice/admin", want: Identity{UserType: "backoffice", Username: "admin"}},
		{in: "site/jane@example.com", want: Identity{UserType: "site", Username: "jane@example.com"}},
	}
	for _, tt := range valid {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIdentity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	invalid := []string{
		"",
		"/",
		"//",
		"site",
		"/site",
		"site/",
		"/admin",
		"site/admin/site",
		"admin//site/a//dmin/s/ite",
		"//site/admin",
		"site/admin//",
		"site//admin",
	}
	for _, in := range invalid {
		t.Run("invalid "+in, func(t *testing.T) {
			_, err := ParseIdentity(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedIdentity))
			assert.Equal(t, problems.EMalformedIdentity, problems.CodeOf(err))
		})
	}
}

func TestIdentityStringRoundTrip(t *testing.T) {
	for _, in := range []string{"site/admin", "backoffice/ops"} {
		id, err := ParseIdentity(in)
		require.NoError(t, err)
		assert.Equal(t, in, id.String())
	}
}
