// Package main is the composition root for a flowrt-based automation
// tool: it resolves a workspace and wires up logging and the reference
// Item collaborators, ready for a caller-defined Flow to be run through
// cmdexecution.Execution.Run. It constructs no output writer.
//
// Building a concrete Flow graph (which Items, in what order, against
// which external resources) is application-specific, so this entry
// point stops at readiness rather than driving one particular flow.
package main

import (
	"fmt"
	"os"

	"github.com/flowrt/flowrt/config"
	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/items/dockercontainer"
	"github.com/flowrt/flowrt/items/shellcmd"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
	"github.com/flowrt/flowrt/telemetry"
	"github.com/flowrt/flowrt/workspace"
)

func main() {
	if err := run(); err != nil {
		telemetry.Logger.Error(err)
		os.Exit(1)
	}
}

func run() error {
	cl := config.NewConfigLoader("FLOWRT")
	cfg, err := cl.LoadAll()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	telemetry.SetLevel(cfg.Runtime.LogLevel)
	telemetry.SetFormat(cfg.Runtime.LogFormat)

	appName, err := ids.NewAppName(cfg.Runtime.AppName)
	if err != nil {
		return fmt.Errorf("invalid app name %q: %w", cfg.Runtime.AppName, err)
	}
	profile, err := ids.NewProfile(cfg.Runtime.Profile)
	if err != nil {
		return fmt.Errorf("invalid profile %q: %w", cfg.Runtime.Profile, err)
	}

	ws, err := workspace.New(cfg.Runtime.WorkspaceDir, appName)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}

	log := telemetry.New(appName.String(), profile.String(), "")
	log.Info("workspace ready at ", ws.ProfileDir(profile))

	r := resources.New[ts.SetUp]()
	if err := shellcmd.New(mustItemID("shellcmd")).Setup(r); err != nil {
		return fmt.Errorf("setting up shellcmd: %w", err)
	}
	if err := dockercontainer.New(mustItemID("dockercontainer")).Setup(r); err != nil {
		return fmt.Errorf("setting up dockercontainer: %w", err)
	}
	// items/s3object, items/hetznerserver and items/gitearepo each need a
	// credential-bearing client the environment has no opinion on; a
	// caller wires those in explicitly via their WithClient functions
	// once it has built the relevant SDK client.

	log.Info("reference items registered, ready to run a flow")
	return nil
}

func mustItemID(name string) ids.ItemId {
	id, err := ids.NewItemId(name)
	if err != nil {
		panic("bug in the framework: built-in item id invalid: " + err.Error())
	}
	return id
}
