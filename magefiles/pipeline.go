//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline groups targets that run the CLI against the local data directory.
type Pipeline mg.Namespace

// Harvest builds the CLI and refreshes the candidate pool if it is stale.
func (Pipeline) Harvest() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath, "harvest")
}

// Rebuild re-probes the whole pool and replaces it with the survivors.
func (Pipeline) Rebuild() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath, "harvest", "--rebuild")
}

// Pick builds the CLI and writes today's post.
func (Pipeline) Pick() error {
	mg.Deps(Init, Build)
	return sh.RunV(binPath, "pick")
}

// Daily runs Harvest then Pick, the order the scheduled job uses.
func (Pipeline) Daily() {
	mg.SerialDeps(Pipeline.Harvest, Pipeline.Pick)
}
