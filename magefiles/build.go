//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every compute shader under assets/shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the framecore binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Build engine...")
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/framecore", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	sources, err := filepath.Glob(filepath.Join("assets", "shaders", "*.comp"))
	if err != nil {
		return err
	}
	for _, src := range sources {
		out := strings.TrimSuffix(src, filepath.Ext(src)) + ".spv"
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.2", src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Tidies go.mod and go.sum.
func (Build) Deps() error {
	return goModTidy()
}
