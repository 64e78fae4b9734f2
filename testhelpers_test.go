/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sti_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/suparena/sti"
	"github.com/suparena/sti/datastore/mock"
	"github.com/suparena/sti/registry"
)

const widgetMorph = `Epiphyte\Widget`

type Widget struct{ sti.Model }

type WidgetNew struct{ sti.Model }

type WidgetActive struct{ sti.Model }

func (w *WidgetActive) Label() string { return "active:" + w.GetString("name") }

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func widgetCatalog(t *testing.T) *registry.Catalog[sti.Entity] {
	t.Helper()
	c := registry.NewCatalog[sti.Entity]()
	require.NoError(t, c.Register(widgetMorph, func() sti.Entity { return &Widget{} }))
	require.NoError(t, c.Register(`Epiphyte\WidgetNew`, func() sti.Entity { return &WidgetNew{} }))
	require.NoError(t, c.Register(`Epiphyte\WidgetActive`, func() sti.Entity { return &WidgetActive{} }))
	return c
}

func widgetResolver(t *testing.T) registry.Resolver[sti.Entity] {
	t.Helper()
	r, err := registry.NewMapResolverFromCatalog(widgetMorph, map[string]string{
		"new":    `Epiphyte\WidgetNew`,
		"active": `Epiphyte\WidgetActive`,
	}, widgetCatalog(t))
	require.NoError(t, err)
	return r
}

func widgetSchema() sti.Schema {
	return sti.Schema{
		Morph:         widgetMorph,
		Table:         "widgets",
		Discriminator: "status",
		SoftDelete:    true,
		Timestamps:    true,
	}
}

func newWidgetRepo(t *testing.T, engine *mock.Engine, opts ...sti.Option) *sti.Repository {
	t.Helper()
	opts = append([]sti.Option{
		sti.WithBaseType(func() sti.Entity { return &Widget{} }),
		sti.WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	repo, err := sti.NewRepository(widgetSchema(), widgetResolver(t), engine, opts...)
	require.NoError(t, err)
	return repo
}
