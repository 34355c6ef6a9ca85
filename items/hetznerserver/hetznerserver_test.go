package hetznerserver_test

import (
	"context"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/items/hetznerserver"
	"github.com/flowrt/flowrt/progress"
)

type fakeClient struct {
	server      *hcloud.Server
	created     bool
	deleted     bool
	createdName string
}

func (f *fakeClient) GetByName(context.Context, string) (*hcloud.Server, *hcloud.Response, error) {
	return f.server, nil, nil
}

func (f *fakeClient) Create(_ context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, *hcloud.Response, error) {
	f.created = true
	f.createdName = opts.Name
	return hcloud.ServerCreateResult{Server: &hcloud.Server{ID: 99, Name: opts.Name, Status: hcloud.ServerStatusRunning}}, nil, nil
}

func (f *fakeClient) DeleteWithResult(context.Context, *hcloud.Server) (hcloud.ServerDeleteResult, *hcloud.Response, error) {
	f.deleted = true
	return hcloud.ServerDeleteResult{}, nil, nil
}

func mustID(t *testing.T) ids.ItemId {
	t.Helper()
	id, err := ids.NewItemId("infra_web")
	require.NoError(t, err)
	return id
}

func TestStateCurrentReportsAbsentWhenNotFound(t *testing.T) {
	it := hetznerserver.New(mustID(t))
	st, err := it.StateCurrent(context.Background(), hetznerserver.Params{Name: "web"}, hetznerserver.Data{Client: &fakeClient{}})
	require.NoError(t, err)
	assert.False(t, st.Exists)
}

func TestStateCurrentFindsExistingServer(t *testing.T) {
	it := hetznerserver.New(mustID(t))
	cli := &fakeClient{server: &hcloud.Server{ID: 42, Name: "web", Status: hcloud.ServerStatusRunning}}
	st, err := it.StateCurrent(context.Background(), hetznerserver.Params{Name: "web"}, hetznerserver.Data{Client: cli})
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, int64(42), st.ID)
}

func TestStateDiffWantsCreateWhenAbsent(t *testing.T) {
	it := hetznerserver.New(mustID(t))
	diff, err := it.StateDiff(context.Background(), hetznerserver.PartialParams{}, hetznerserver.Data{},
		hetznerserver.State{Exists: false}, hetznerserver.State{Exists: true})
	require.NoError(t, err)
	assert.True(t, diff.NeedsCreate)
}

func TestApplyCreatesServer(t *testing.T) {
	it := hetznerserver.New(mustID(t))
	cli := &fakeClient{}
	ch := make(chan progress.CmdProgressUpdate, 8)
	sender := progress.NewSender(context.Background(), mustID(t), ch)
	fnCtx := item.FnCtx{Ctx: context.Background(), Progress: sender}

	params := hetznerserver.Params{Name: "web", ServerType: "ccx13", Image: "alma-10", Location: "nbg1"}
	st, err := it.Apply(fnCtx, params, hetznerserver.Data{Client: cli},
		hetznerserver.State{Exists: false}, hetznerserver.State{Exists: true},
		hetznerserver.Diff{NeedsCreate: true})
	require.NoError(t, err)
	assert.True(t, cli.created)
	assert.Equal(t, "web", cli.createdName)
	assert.True(t, st.Exists)
	assert.Equal(t, int64(99), st.ID)
}

func TestApplyDeletesServer(t *testing.T) {
	it := hetznerserver.New(mustID(t))
	cli := &fakeClient{}
	ch := make(chan progress.CmdProgressUpdate, 8)
	sender := progress.NewSender(context.Background(), mustID(t), ch)
	fnCtx := item.FnCtx{Ctx: context.Background(), Progress: sender}

	st, err := it.Apply(fnCtx, hetznerserver.Params{Name: "web"}, hetznerserver.Data{Client: cli},
		hetznerserver.State{Exists: true, ID: 42}, hetznerserver.State{Exists: false},
		hetznerserver.Diff{NeedsDelete: true})
	require.NoError(t, err)
	assert.True(t, cli.deleted)
	assert.False(t, st.Exists)
}
