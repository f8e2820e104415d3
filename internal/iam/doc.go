// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package iam implements role and policy administration: create-or-reconcile
// role replication across accounts, policy attachment, quota reporting, and
// permission checks.
package iam
