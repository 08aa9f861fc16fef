package runtime

import (
	"context"
	"testing"

	"github.com/harunnryd/biwa/internal/config"
	"github.com/harunnryd/biwa/internal/model"
	"github.com/harunnryd/biwa/internal/model/contract"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	cfg.Store.WorkspacePath = t.TempDir()
	cfg.Llama.Manage = false
	return cfg
}

func TestResolveWorkspaceIDPrefersFlag(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringP("workspace", "w", "", "")
	require.NoError(t, cmd.Flags().Set("workspace", "scratch"))

	cfg := &config.Config{}
	cfg.Store.WorkspaceID = "from-config"

	require.Equal(t, "scratch", ResolveWorkspaceID(cmd, cfg))
}

func TestResolveWorkspaceIDFallsBackToConfigThenDefault(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringP("workspace", "w", "", "")

	cfg := &config.Config{}
	cfg.Store.WorkspaceID = "from-config"
	require.Equal(t, "from-config", ResolveWorkspaceID(cmd, cfg))

	cfg.Store.WorkspaceID = ""
	require.Equal(t, config.DefaultWorkspaceID, ResolveWorkspaceID(cmd, cfg))
}

func TestResolveSessionID(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringP("session", "s", "", "")
	require.Equal(t, DefaultSessionID, ResolveSessionID(cmd))

	require.NoError(t, cmd.Flags().Set("session", "afternoon"))
	require.Equal(t, "afternoon", ResolveSessionID(cmd))
}

func TestBuildWiresComponents(t *testing.T) {
	cfg := testConfig(t)

	c, err := Build(context.Background(), cfg, BuildOptions{
		WorkspaceID: "test-ws",
		SessionID:   "test-session",
	})
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	require.Equal(t, "test-ws", c.WorkspaceID)
	require.Equal(t, "test-session", c.SessionID)
	require.NotNil(t, c.StoreWorker)
	require.NotNil(t, c.Engine)
	require.NotNil(t, c.Supervisor)
	require.Equal(t, []string{"local"}, c.Router.ListModels())

	names := c.ToolRegistry.Names()
	require.Contains(t, names, "add_numbers")
	require.Contains(t, names, "get_current_time")
	require.Contains(t, names, "get_weather")
	require.Contains(t, names, "remember")
	require.Contains(t, names, "recall")
}

func TestBuildSkipsMemoryToolsWhenDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.Enabled = false

	c, err := Build(context.Background(), cfg, BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	names := c.ToolRegistry.Names()
	require.NotContains(t, names, "remember")
	require.NotContains(t, names, "recall")
}

type fakeEmbedProvider struct {
	texts []string
}

func (f *fakeEmbedProvider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	return &contract.CompletionResponse{Content: "ok"}, nil
}

func (f *fakeEmbedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	return []float32{0.5}, nil
}

func (f *fakeEmbedProvider) Name() string { return "fake" }

func (f *fakeEmbedProvider) Health(ctx context.Context) error { return nil }

func TestRouterEmbedderRoutesThroughRouter(t *testing.T) {
	provider := &fakeEmbedProvider{}
	router := model.NewRouter("local")
	router.Register("local", provider)

	vec, err := routerEmbedder{router: router, model: "local"}.Embed(context.Background(), "note to self")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5}, vec)
	require.Equal(t, []string{"note to self"}, provider.texts)
}

func TestBuildAppliesDefaults(t *testing.T) {
	cfg := testConfig(t)

	c, err := Build(context.Background(), cfg, BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	require.Equal(t, config.DefaultWorkspaceID, c.WorkspaceID)
	require.Equal(t, DefaultSessionID, c.SessionID)
}
