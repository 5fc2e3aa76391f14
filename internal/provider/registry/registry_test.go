package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/provider/echo"
	"github.com/echorank/echorank/internal/provider/registry"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	provider := echo.NewProvider(nil)
	require.NoError(t, reg.Register(ctx, provider))

	got, err := reg.Get(ctx, "echo")
	require.NoError(t, err)
	require.Equal(t, "echo", got.Name())
}

func TestRegistry_GetUnknownProviderErrors(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	_, err := reg.Get(ctx, "anthropic")
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrProviderNotConfigured)
}

func TestRegistry_RegisterDuplicateErrors(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	require.NoError(t, reg.Register(ctx, echo.NewProvider(nil)))
	require.Error(t, reg.Register(ctx, echo.NewProvider(nil)))
}

func TestRegistry_RegisterNilErrors(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	require.Error(t, reg.Register(ctx, nil))
}

func TestRegistry_ListIsSorted(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(ctx, echo.NewProvider(nil)))

	names, err := reg.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"echo"}, names)
}
