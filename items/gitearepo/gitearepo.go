// Package gitearepo implements a reference Item whose managed resource
// is a repository on a Gitea instance, grounded on the teacher's
// forge.GiteaGetRepo (gitea.NewClient(url, gitea.SetToken(token)) via
// code.gitea.io/sdk/gitea).
package gitearepo

import (
	"context"
	"fmt"

	"code.gitea.io/sdk/gitea"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// Client is the subset of the Gitea SDK this Item drives, narrowed
// from *gitea.Client to one repository's lifecycle.
type Client interface {
	GetRepo(owner, name string) (*gitea.Repository, *gitea.Response, error)
	CreateRepo(opt gitea.CreateRepoOption) (*gitea.Repository, *gitea.Response, error)
	DeleteRepo(owner, name string) (*gitea.Response, error)
}

// Params is the fully-resolved desired configuration of one repository.
type Params struct {
	Owner       string
	Name        string
	Description string
	Private     bool
}

// PartialParams is Params with fields optionally known.
type PartialParams struct {
	Owner *string
	Name  *string
}

// State is the observable existence/visibility of the repository.
type State struct {
	Exists   bool
	ID       int64
	CloneURL string
	Private  bool
}

// Diff reports whether the repository must be created or deleted.
type Diff struct {
	NeedsCreate bool
	NeedsDelete bool
}

// Data is the Gitea client handle, inserted into Resources by WithClient
// (Setup inserts nothing).
type Data struct {
	Client Client
}

// Item manages one Gitea repository's presence.
type Item struct {
	id ids.ItemId
}

var _ item.Item[Params, PartialParams, State, Diff, Data] = (*Item)(nil)

// New returns a gitearepo Item identified by id.
func New(id ids.ItemId) *Item { return &Item{id: id} }

func (i *Item) ID() ids.ItemId { return i.id }

// WithClient inserts cli as the Data collaborator gitearepo Items
// read, built by the caller via gitea.NewClient(url,
// gitea.SetToken(token)), the same construction the teacher's
// forge.GiteaGetRepo uses.
func WithClient(r *resources.Resources[ts.SetUp], cli Client) {
	resources.Insert[ts.SetUp](r, Data{Client: cli})
}

// Setup inserts no collaborator of its own: the Gitea instance URL and
// access token are secrets the Resources lifecycle has no opinion on,
// so the caller builds the client and registers it via WithClient.
func (i *Item) Setup(r *resources.Resources[ts.SetUp]) error {
	return nil
}

func (i *Item) StateExample(params Params, data Data) State {
	return State{Exists: true, ID: 1, CloneURL: fmt.Sprintf("https://example.invalid/%s/%s.git", params.Owner, params.Name)}
}

func (i *Item) TryStateCurrent(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	if partial.Owner == nil || partial.Name == nil {
		return State{}, false, nil
	}
	st, err := i.lookup(*partial.Owner, *partial.Name, data)
	return st, true, err
}

func (i *Item) StateCurrent(ctx context.Context, params Params, data Data) (State, error) {
	return i.lookup(params.Owner, params.Name, data)
}

func (i *Item) lookup(owner, name string, data Data) (State, error) {
	repo, resp, err := data.Client.GetRepo(owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return State{Exists: false}, nil
		}
		return State{}, fmt.Errorf("gitearepo: looking up %s/%s: %w", owner, name, err)
	}
	return State{Exists: true, ID: repo.ID, CloneURL: repo.CloneURL, Private: repo.Private}, nil
}

func (i *Item) TryStateGoal(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	return State{}, false, nil
}

func (i *Item) StateGoal(ctx context.Context, params Params, data Data) (State, error) {
	return State{Exists: true, Private: params.Private}, nil
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
	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: fmt.Sprintf("would reconcile repo %s/%s", params.Owner, params.Name)})
	return stateTarget, nil
}

func (i *Item) Apply(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	if diff.NeedsDelete {
		fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "deleting repo"})
		if _, err := data.Client.DeleteRepo(params.Owner, params.Name); err != nil {
			return State{}, fmt.Errorf("gitearepo: deleting %s/%s: %w", params.Owner, params.Name, err)
		}
		fnCtx.Progress.Inc(1, progress.MsgUpdate{})
		return State{Exists: false}, nil
	}

	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "creating repo"})
	repo, _, err := data.Client.CreateRepo(gitea.CreateRepoOption{
		Name:        params.Name,
		Description: params.Description,
		Private:     params.Private,
	})
	if err != nil {
		return State{}, fmt.Errorf("gitearepo: creating %s/%s: %w", params.Owner, params.Name, err)
	}
	fnCtx.Progress.Inc(1, progress.MsgUpdate{})
	return State{Exists: true, ID: repo.ID, CloneURL: repo.CloneURL, Private: repo.Private}, nil
}

func (i *Item) Interactions(params Params, data Data) []item.ItemInteraction {
	return []item.ItemInteraction{{Kind: item.InteractionHost, Location: fmt.Sprintf("%s/%s", params.Owner, params.Name)}}
}
