// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the imageres
// tool.
//
// Configuration is loaded from a single file specified by either the
// IMAGERES_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search, so a build is
// reproducible from its command line and one file.
//
//	layered: true
//	enforcement: strict
//	compression: auto
//	paths:
//	  resource_configs: [${CONFIG_DIR}/resources.jsonc]
//	  previous_layers: [${HOME}/layers/base/layer.snapshot]
//	  output_dir: ${OUT:-out}
//	sources:
//	  - path: build/classes
//	  - path: lib/app.jar
//	    module: app
//
// Path fields have ${VAR} and ${VAR:-default} expanded after loading;
// ${CONFIG_DIR} is the directory holding the file. Unknown keys are
// errors.
//
// Key exports:
//
//   - [Config] -- tool settings, Paths and Sources
//   - [Default] -- values for fields the file leaves unset
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [ParseSource] -- the PATH=MODULE command-line form
package config
