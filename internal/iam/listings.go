// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"regexp"
	"slices"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"

	"github.com/awsadm/awsadm/internal/log"
)

// listingWorkers bounds the per-role detail fetches that fan out after the
// role list is drained.
const listingWorkers = 8

// RoleUsage is one row of a role listing report.
type RoleUsage struct {
	RoleName     string
	InlineBytes  int
	InlineCount  int
	ManagedCount int
}

// usage fetches one role's policy usage numbers.
func (r *Repository) usage(ctx context.Context, roleName string) (RoleUsage, error) {
	u := RoleUsage{RoleName: roleName}

	inlineNames, err := r.ListInlinePolicyNames(ctx, roleName)
	if err != nil {
		return u, err
	}
	u.InlineCount = len(inlineNames)
	for _, name := range inlineNames {
		doc, err := r.GetInlinePolicy(ctx, roleName, name)
		if err != nil {
			return u, err
		}
		serialized, err := doc.Marshal()
		if err != nil {
			return u, err
		}
		u.InlineBytes += len(serialized)
	}

	managed, err := r.ListAttachedPolicies(ctx, roleName)
	if err != nil {
		return u, err
	}
	u.ManagedCount = len(managed)

	return u, nil
}

// usageForRoles fans the per-role usage fetches out over a bounded worker
// pool and returns the rows sorted by role name.
func (r *Repository) usageForRoles(ctx context.Context, roleNames []string) ([]RoleUsage, error) {
	var (
		mu   sync.Mutex
		rows []RoleUsage
		errs *multierror.Error
	)

	wp := workerpool.New(listingWorkers)
	for _, roleName := range roleNames {
		wp.Submit(func() {
			u, err := r.usage(ctx, roleName)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, err)
				return
			}
			rows = append(rows, u)
		})
	}
	wp.StopWait()

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RoleName < rows[j].RoleName })
	return rows, nil
}

// RolesWithPolicy lists the roles that have the named managed policy
// attached, with each role's policy usage. The policy name must resolve in
// the account.
func (r *Repository) RolesWithPolicy(ctx context.Context, policyName string, pattern *regexp.Regexp) ([]RoleUsage, error) {
	arn, err := r.ResolvePolicyArn(ctx, policyName, "All")
	if err != nil {
		return nil, err
	}

	roleNames, err := r.RolesForPolicy(ctx, arn, pattern)
	if err != nil {
		return nil, err
	}
	log.Debugf("roles with policy: count=%d", len(roleNames))
	return r.usageForRoles(ctx, roleNames)
}

// RolesWithoutPolicy lists the roles that do not have the named managed
// policy attached.
func (r *Repository) RolesWithoutPolicy(ctx context.Context, policyName string, pattern *regexp.Regexp) ([]RoleUsage, error) {
	arn, err := r.ResolvePolicyArn(ctx, policyName, "All")
	if err != nil {
		return nil, err
	}

	attached, err := r.RolesForPolicy(ctx, arn, nil)
	if err != nil {
		return nil, err
	}

	allRoles, err := r.ListRoles(ctx, pattern)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, role := range allRoles {
		name := aws.ToString(role.RoleName)
		if !slices.Contains(attached, name) {
			missing = append(missing, name)
		}
	}
	return r.usageForRoles(ctx, missing)
}

// RolesWithoutInlinePolicy lists the roles that do not carry the named
// inline policy.
func (r *Repository) RolesWithoutInlinePolicy(ctx context.Context, inlinePolicyName string, pattern *regexp.Regexp) ([]string, error) {
	allRoles, err := r.ListRoles(ctx, pattern)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		missing []string
		errs    *multierror.Error
	)

	wp := workerpool.New(listingWorkers)
	for _, role := range allRoles {
		roleName := aws.ToString(role.RoleName)
		wp.Submit(func() {
			inlineNames, err := r.ListInlinePolicyNames(ctx, roleName)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, err)
				return
			}
			if !slices.Contains(inlineNames, inlinePolicyName) {
				missing = append(missing, roleName)
			}
		})
	}
	wp.StopWait()

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	sort.Strings(missing)
	return missing, nil
}
