// Package app assembles the identity service: tenant resolution, the
// authorization server, the token consumption path and the API routes.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shopgate/internal/access"
	"shopgate/internal/api"
	"shopgate/internal/authn"
	"shopgate/internal/authserver"
	"shopgate/internal/credentials"
	"shopgate/internal/tenancy"
	"shopgate/internal/tenantid"
	"shopgate/internal/token"
	"shopgate/pkg/config"
	"shopgate/pkg/metrics"
	"shopgate/pkg/openapi"
)

// Stores are the collaborators that differ between deployments.
type Stores struct {
	Staff    credentials.StaffStore
	Shoppers credentials.ShopperStore
	Codes    authserver.CodeStore
}

// App is the service container. Shared deps and config only; request state
// travels in the context.
type App struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	catalog config.ScopeCatalog
	metrics metrics.Metrics

	tenants  *tenantid.Codec
	resolver *tenancy.Resolver
	schemas  tenancy.SchemaRouter
	tokens   *token.Codec
	server   *authserver.Server
	openapi  *openapi.Registry
	routes   []api.Route
	policy   *access.Policy
}

// New wires the service. m may be nil.
func New(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, catalog config.ScopeCatalog, stores Stores, m metrics.Metrics) (*App, error) {
	if m == nil {
		m = metrics.Noop{}
	}
	tenants, err := tenantid.NewCodec(cfg.TenantSecret)
	if err != nil {
		return nil, err
	}
	loader := authn.Loader{Staff: stores.Staff, Shoppers: stores.Shoppers}
	tokens, err := token.NewCodec(token.Config{
		SigningKey:      []byte(cfg.TokenSigningKey),
		IssuerPrefix:    cfg.IssuerPrefix,
		AccessValidity:  cfg.AccessTokenValidity,
		RefreshValidity: cfg.RefreshTokenValidity,
		AuthoritiesPath: cfg.AuthoritiesClaimPath,
	}, loader)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		catalog:  catalog,
		metrics:  m,
		tenants:  tenants,
		resolver: tenancy.NewResolver(tenants),
		schemas:  tenancy.NewSchemaRouter(cfg.DefaultSchema, cfg.TenantSchemaPrefix),
		tokens:   tokens,
		openapi:  openapi.NewRegistry(),
	}
	a.server = &authserver.Server{
		Registry: &authserver.Registry{
			Codec:            tenants,
			Catalog:          catalog,
			RedirectURIs:     cfg.ClientRedirectURIs,
			AccessValidity:   cfg.AccessTokenValidity,
			RefreshValidity:  cfg.RefreshTokenValidity,
			ValidateClientID: a.resolver.ClientIDValidator(),
		},
		Factory:   authserver.RequestFactory{Catalog: catalog},
		Validator: authserver.ScopeValidator{Catalog: catalog},
		Staff:     authn.StaffVerifier{Store: stores.Staff},
		Shopper:   authn.ShopperVerifier{Store: stores.Shoppers},
		Loader:    loader,
		Tokens:    tokens,
		Codes:     stores.Codes,
		Metrics:   m,
		Log:       log,
	}

	h := &api.Handler{Schemas: a.schemas, Catalog: catalog, Log: log}
	a.routes = h.Routes()
	for _, rt := range a.routes {
		a.openapi.Register(rt.Operation)
	}
	a.policy, err = access.New(ctx, a.openapi.Operations())
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SchemaOf maps a tenant string from a seed file to its schema.
func (a *App) SchemaOf(tenant string) (string, error) {
	if tenant == string(tenantid.Default) {
		return a.schemas.SchemaFor(tenantid.Default), nil
	}
	id, err := a.tenants.Parse(tenant)
	if err != nil {
		return "", fmt.Errorf("tenant %q: %w", tenant, err)
	}
	return a.schemas.SchemaFor(id), nil
}
