package authserver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgate/internal/tenantid"
	"shopgate/pkg/problems"
)

func TestRegistryLookup(t *testing.T) {
	f := newFixture(t)
	reg := f.server.Registry

	c, err := reg.Lookup(f.ctx(f.tenantA), string(f.tenantA))
	require.NoError(t, err)
	assert.Equal(t, f.tenantA, c.Tenant)
	assert.Equal(t, []string{"admin", "customer", "customer_registered"}, c.Scopes)
	for _, g := range []string{GrantPassword, GrantAnonymous, GrantImplicit, GrantAuthorizationCode, GrantRefreshToken} {
		assert.True(t, c.Supports(g), g)
	}
	assert.Equal(t, []string{redirectURI}, c.RedirectURIs)

	c, err = reg.Lookup(f.ctx(tenantid.Default), "default")
	require.NoError(t, err)
	assert.Equal(t, tenantid.Default, c.Tenant)
}

func TestRegistryLookupFailures(t *testing.T) {
	f := newFixture(t)
	reg := f.server.Registry

	other, err := tenantid.NewCodec("some-other-secret")
	require.NoError(t, err)
	forged, err := other.Generate()
	require.NoError(t, err)

	tests := []struct {
		name     string
		tenant   tenantid.ID
		clientID string
	}{
		{name: "empty", tenant: f.tenantA, clientID: ""},
		{name: "garbage", tenant: f.tenantA, clientID: "not-a-tenant"},
		{name: "forged", tenant: f.tenantA, clientID: string(forged)},
		{name: "other tenant", tenant: f.tenantB, clientID: string(f.tenantA)},
		{name: "default client on tenant", tenant: f.tenantA, clientID: "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Lookup(f.ctx(tt.tenant), tt.clientID)
			require.Error(t, err)
			assert.Equal(t, problems.ENoSuchClient, problems.CodeOf(err))
		})
	}
}

func TestRegistryWithoutValidator(t *testing.T) {
	f := newFixture(t)
	reg := *f.server.Registry
	reg.ValidateClientID = nil
	c, err := reg.Lookup(f.ctx(f.tenantB), string(f.tenantA))
	require.NoError(t, err)
	assert.Equal(t, f.tenantA, c.Tenant)

	_, err = reg.Lookup(f.ctx(f.tenantB), "nope")
	assert.True(t, errors.Is(err, ErrNoSuchClient))
}
