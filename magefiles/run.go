//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the testbed on the Vulkan backend.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "--config", "framecore.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs a few hundred frames on the software backend, no window or GPU needed.
func (Run) Headless() error {
	fmt.Println("Run headless...")
	if _, err := executeCmd("go", withArgs("run", ".", "--backend", "software", "--frames", "300", "--log-level", "debug"), withStream()); err != nil {
		return err
	}
	return nil
}
