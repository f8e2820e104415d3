// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package command wires the CLI surface: one builder per service, each
// returning a cli.Command with its subcommands, flags, and actions.
package command
