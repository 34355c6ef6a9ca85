// Package hetznerserver implements a reference Item whose managed
// resource is a Hetzner Cloud server, grounded on the teacher's
// cloud.HetznerServerCreate/HetznerServerDelete/HetznerServers
// (client.Server.Create/DeleteWithResult/GetByName, all via
// github.com/hetznercloud/hcloud-go/v2/hcloud).
package hetznerserver

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// Client is the subset of the Hetzner Cloud SDK this Item drives,
// narrowed from *hcloud.Client.Server to one server's lifecycle.
type Client interface {
	GetByName(ctx context.Context, name string) (*hcloud.Server, *hcloud.Response, error)
	Create(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, *hcloud.Response, error)
	DeleteWithResult(ctx context.Context, server *hcloud.Server) (hcloud.ServerDeleteResult, *hcloud.Response, error)
}

// SSHKey identifies a key to install on server creation, mirroring the
// teacher's hardcoded hcloud.SSHKey literal.
type SSHKey struct {
	ID   int64
	Name string
}

// Params is the fully-resolved desired configuration of one server.
type Params struct {
	Name       string
	ServerType string // e.g. "ccx13"
	Image      string // e.g. "alma-10"
	Location   string // e.g. "nbg1"
	SSHKeys    []SSHKey
}

// PartialParams is Params with fields optionally known.
type PartialParams struct {
	Name *string
}

// State is the observable existence/status of the named server.
type State struct {
	Exists bool
	ID     int64
	Status string
}

// Diff reports whether the server must be created or deleted.
type Diff struct {
	NeedsCreate bool
	NeedsDelete bool
}

// Data is the Hetzner Cloud client handle, inserted into Resources by
// WithClient (Setup inserts nothing).
type Data struct {
	Client Client
}

// Item manages one named Hetzner Cloud server.
type Item struct {
	id ids.ItemId
}

var _ item.Item[Params, PartialParams, State, Diff, Data] = (*Item)(nil)

// New returns a hetznerserver Item identified by id.
func New(id ids.ItemId) *Item { return &Item{id: id} }

func (i *Item) ID() ids.ItemId { return i.id }

// WithClient inserts cli as the Data collaborator hetznerserver Items
// read, built by the caller from an API token via
// hcloud.NewClient(hcloud.WithToken(token)) the same way the teacher's
// cloud package does for every Hetzner call.
func WithClient(r *resources.Resources[ts.SetUp], cli Client) {
	resources.Insert[ts.SetUp](r, Data{Client: cli})
}

// Setup inserts no collaborator of its own: an API token is a secret
// the Resources lifecycle has no opinion on, so the caller builds the
// hcloud client and registers it via WithClient.
func (i *Item) Setup(r *resources.Resources[ts.SetUp]) error {
	return nil
}

func (i *Item) StateExample(params Params, data Data) State {
	return State{Exists: true, ID: 12345, Status: string(hcloud.ServerStatusRunning)}
}

func (i *Item) TryStateCurrent(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	if partial.Name == nil {
		return State{}, false, nil
	}
	st, err := i.byName(ctx, *partial.Name, data)
	return st, true, err
}

func (i *Item) StateCurrent(ctx context.Context, params Params, data Data) (State, error) {
	return i.byName(ctx, params.Name, data)
}

func (i *Item) byName(ctx context.Context, name string, data Data) (State, error) {
	server, _, err := data.Client.GetByName(ctx, name)
	if err != nil {
		return State{}, fmt.Errorf("hetznerserver: looking up %q: %w", name, err)
	}
	if server == nil {
		return State{Exists: false}, nil
	}
	return State{Exists: true, ID: server.ID, Status: string(server.Status)}, nil
}

func (i *Item) TryStateGoal(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	return State{}, false, nil
}

func (i *Item) StateGoal(ctx context.Context, params Params, data Data) (State, error) {
	return State{Exists: true, Status: string(hcloud.ServerStatusRunning)}, nil
}

func (i *Item) StateDiff(ctx context.Context, partial PartialParams, data Data, stateA, stateB State) (Diff, error) {
	if !stateA.Exists && stateB.Exists {
		return Diff{NeedsCreate: true}, nil
	}
	if stateA.Exists && !stateB.Exists {
		return Diff{NeedsDelete: true}, nil
	}
	return Diff{}, nil
}

func (i *Item) StateClean(ctx context.Context, partial PartialParams, data Data) (State, error) {
	return State{Exists: false}, nil
}

func (i *Item) ApplyCheck(params Params, data Data, stateCurrent, stateTarget State, diff Diff) (item.ApplyCheck, error) {
	if !diff.NeedsCreate && !diff.NeedsDelete {
		return item.ApplyCheck{Kind: item.ExecNotRequired}, nil
	}
	return item.ApplyCheck{Kind: item.ExecRequired}, nil
}

func (i *Item) ApplyDry(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: fmt.Sprintf("would reconcile server %s", params.Name)})
	return stateTarget, nil
}

func (i *Item) Apply(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	ctx := fnCtx.Ctx

	if diff.NeedsDelete {
		fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "deleting server"})
		if _, _, err := data.Client.DeleteWithResult(ctx, &hcloud.Server{ID: stateCurrent.ID}); err != nil {
			return State{}, fmt.Errorf("hetznerserver: deleting %q: %w", params.Name, err)
		}
		fnCtx.Progress.Inc(1, progress.MsgUpdate{})
		return State{Exists: false}, nil
	}

	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "creating server"})
	result, _, err := data.Client.Create(ctx, hcloud.ServerCreateOpts{
		Name:       params.Name,
		Image:      &hcloud.Image{Name: params.Image},
		ServerType: &hcloud.ServerType{Name: params.ServerType, CPUType: hcloud.CPUTypeDedicated},
		Location:   &hcloud.Location{Name: params.Location},
		SSHKeys:    sshKeys(params.SSHKeys),
	})
	if err != nil {
		return State{}, fmt.Errorf("hetznerserver: creating %q: %w", params.Name, err)
	}
	fnCtx.Progress.Inc(1, progress.MsgUpdate{})
	return State{Exists: true, ID: result.Server.ID, Status: string(result.Server.Status)}, nil
}

func sshKeys(keys []SSHKey) []*hcloud.SSHKey {
	if len(keys) == 0 {
		return nil
	}
	out := make([]*hcloud.SSHKey, len(keys))
	for idx, k := range keys {
		out[idx] = &hcloud.SSHKey{ID: k.ID, Name: k.Name}
	}
	return out
}

func (i *Item) Interactions(params Params, data Data) []item.ItemInteraction {
	return []item.ItemInteraction{{Kind: item.InteractionHost, Location: params.Name}}
}
