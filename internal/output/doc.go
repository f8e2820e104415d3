// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package output provides sorting and emission utilities used by commands to
// present results in text, json, or yaml form.
package output
