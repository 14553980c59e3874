// SemantOS - Guarded Rollout Controller for Kernel Tunables
// Copyright 2026 The SemantOS Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/leemgs/semantos

package rollout

import "github.com/goccy/go-json"

func marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
