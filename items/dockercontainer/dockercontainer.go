// Package dockercontainer implements a reference Item whose managed
// resource is a running Docker container, grounded on the teacher's
// common.ContainerRun/common.Containers (create-then-start via
// cli.ContainerCreate/ContainerStart, list via cli.ContainerList) and the
// narrow common.DockerClient interface (common/docker_interface.go) this
// package's Client subset mirrors for testability.
package dockercontainer

import (
	"context"
	"fmt"
	"io"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	networktypes "github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// Client is the subset of the Docker SDK this Item drives, narrowed from
// common.DockerClient to exactly the container/image operations a single
// container's lifecycle needs, so tests can substitute a fake.
type Client interface {
	ContainerList(ctx context.Context, options containertypes.ListOptions) ([]containertypes.Summary, error)
	ContainerCreate(ctx context.Context, config *containertypes.Config, hostConfig *containertypes.HostConfig, networkingConfig *networktypes.NetworkingConfig, platform *ocispec.Platform, containerName string) (containertypes.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options containertypes.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options containertypes.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options containertypes.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
}

// Params is the fully-resolved desired configuration of one container.
type Params struct {
	Name  string
	Image string
	Env   []string
	Ports []PortMapping
}

// PortMapping is one host-port -> container-port/proto binding.
type PortMapping struct {
	HostPort      string
	ContainerPort string
	Proto         string // "tcp" or "udp"; empty defaults to "tcp"
}

// PartialParams is Params with fields optionally known.
type PartialParams struct {
	Name  *string
	Image *string
}

// State is the observable lifecycle state of the container named
// Params.Name.
type State struct {
	Exists bool
	ID     string
	Image  string
	Status string
	Running bool
}

// Diff reports the fields that must change to reach the target state.
type Diff struct {
	NeedsCreate bool
	NeedsStart  bool
	NeedsStop   bool
	NeedsRemove bool
}

// Data is the Docker client handle, inserted into Resources by Setup.
type Data struct {
	Client Client
}

// Item manages one named Docker container.
type Item struct {
	id ids.ItemId
}

var _ item.Item[Params, PartialParams, State, Diff, Data] = (*Item)(nil)

// New returns a dockercontainer Item identified by id.
func New(id ids.ItemId) *Item { return &Item{id: id} }

func (i *Item) ID() ids.ItemId { return i.id }

// Setup dials the local Docker daemon via the DOCKER_HOST/TLS environment
// the SDK's client.FromEnv option reads, the same entry point the
// teacher's common package documents as its "Alternative" client
// construction.
func (i *Item) Setup(r *resources.Resources[ts.SetUp]) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("dockercontainer: connecting to docker: %w", err)
	}
	resources.Insert[ts.SetUp](r, Data{Client: cli})
	return nil
}

func (i *Item) StateExample(params Params, data Data) State {
	return State{Exists: true, ID: "deadbeef", Image: params.Image, Status: "running", Running: true}
}

func (i *Item) TryStateCurrent(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	if partial.Name == nil {
		return State{}, false, nil
	}
	st, err := i.currentByName(ctx, *partial.Name, data)
	return st, true, err
}

func (i *Item) StateCurrent(ctx context.Context, params Params, data Data) (State, error) {
	return i.currentByName(ctx, params.Name, data)
}

func (i *Item) currentByName(ctx context.Context, name string, data Data) (State, error) {
	containers, err := data.Client.ContainerList(ctx, containertypes.ListOptions{All: true})
	if err != nil {
		return State{}, fmt.Errorf("dockercontainer: listing containers: %w", err)
	}
	for _, c := range containers {
		for _, n := range c.Names {
			if trimSlash(n) == name {
				return State{
					Exists:  true,
					ID:      c.ID,
					Image:   c.Image,
					Status:  c.Status,
					Running: c.State == "running",
				}, nil
			}
		}
	}
	return State{Exists: false}, nil
}

func trimSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}

func (i *Item) TryStateGoal(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	if partial.Image == nil {
		return State{}, false, nil
	}
	return State{Exists: true, Image: *partial.Image, Running: true}, true, nil
}

func (i *Item) StateGoal(ctx context.Context, params Params, data Data) (State, error) {
	return State{Exists: true, Image: params.Image, Running: true}, nil
}

func (i *Item) StateDiff(ctx context.Context, partial PartialParams, data Data, stateA, stateB State) (Diff, error) {
	var d Diff
	if !stateA.Exists && stateB.Exists {
		d.NeedsCreate = true
		d.NeedsStart = true
	}
	if stateA.Exists && !stateB.Running && stateB.Exists {
		d.NeedsStop = true
	}
	if stateA.Exists && stateA.Running && !stateB.Exists {
		d.NeedsStop = true
		d.NeedsRemove = true
	}
	if stateA.Exists && !stateA.Running && stateB.Running {
		d.NeedsStart = true
	}
	return d, nil
}

func (i *Item) StateClean(ctx context.Context, partial PartialParams, data Data) (State, error) {
	return State{Exists: false}, nil
}

func (i *Item) ApplyCheck(params Params, data Data, stateCurrent, stateTarget State, diff Diff) (item.ApplyCheck, error) {
	if !diff.NeedsCreate && !diff.NeedsStart && !diff.NeedsStop && !diff.NeedsRemove {
		return item.ApplyCheck{Kind: item.ExecNotRequired}, nil
	}
	return item.ApplyCheck{Kind: item.ExecRequired}, nil
}

func (i *Item) ApplyDry(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: fmt.Sprintf("would reconcile container %s", params.Name)})
	return stateTarget, nil
}

func (i *Item) Apply(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	ctx := fnCtx.Ctx

	if diff.NeedsStop && stateCurrent.ID != "" {
		fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "stopping container"})
		if err := data.Client.ContainerStop(ctx, stateCurrent.ID, containertypes.StopOptions{}); err != nil {
			return State{}, fmt.Errorf("dockercontainer: stopping %s: %w", stateCurrent.ID, err)
		}
	}
	if diff.NeedsRemove && stateCurrent.ID != "" {
		fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "removing container"})
		if err := data.Client.ContainerRemove(ctx, stateCurrent.ID, containertypes.RemoveOptions{Force: true}); err != nil {
			return State{}, fmt.Errorf("dockercontainer: removing %s: %w", stateCurrent.ID, err)
		}
		fnCtx.Progress.Inc(1, progress.MsgUpdate{})
		return State{Exists: false}, nil
	}

	id := stateCurrent.ID
	if diff.NeedsCreate {
		fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "pulling image"})
		rc, err := data.Client.ImagePull(ctx, params.Image, image.PullOptions{})
		if err != nil {
			return State{}, fmt.Errorf("dockercontainer: pulling %s: %w", params.Image, err)
		}
		_, _ = io.Copy(io.Discard, rc)
		rc.Close()

		fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "creating container"})
		resp, err := data.Client.ContainerCreate(
			ctx,
			&containertypes.Config{Image: params.Image, Env: params.Env},
			&containertypes.HostConfig{PortBindings: portBindings(params.Ports)},
			&networktypes.NetworkingConfig{},
			&ocispec.Platform{},
			params.Name,
		)
		if err != nil {
			return State{}, fmt.Errorf("dockercontainer: creating %s: %w", params.Name, err)
		}
		id = resp.ID
	}
	if diff.NeedsStart {
		fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "starting container"})
		if err := data.Client.ContainerStart(ctx, id, containertypes.StartOptions{}); err != nil {
			return State{}, fmt.Errorf("dockercontainer: starting %s: %w", id, err)
		}
	}
	fnCtx.Progress.Inc(1, progress.MsgUpdate{})
	return i.currentByName(ctx, params.Name, data)
}

func portBindings(ports []PortMapping) nat.PortMap {
	if len(ports) == 0 {
		return nil
	}
	bindings := make(nat.PortMap, len(ports))
	for _, p := range ports {
		proto := p.Proto
		if proto == "" {
			proto = "tcp"
		}
		key := nat.Port(fmt.Sprintf("%s/%s", p.ContainerPort, proto))
		bindings[key] = []nat.PortBinding{{HostPort: p.HostPort}}
	}
	return bindings
}

func (i *Item) Interactions(params Params, data Data) []item.ItemInteraction {
	return []item.ItemInteraction{{Kind: item.InteractionLocalhost}}
}
