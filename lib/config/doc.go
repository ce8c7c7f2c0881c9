// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the daemon configuration from a single YAML
// file passed via --config. There is no automatic discovery and no
// hidden overrides: what the file says, plus documented defaults for
// omitted fields, is the whole configuration.
package config
