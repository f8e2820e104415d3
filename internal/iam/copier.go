// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/hashicorp/go-multierror"

	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/policy"
)

// Copier replicates a role from a source account to a target account. The
// replication is create-or-reconcile: a missing target role is created with
// the (substituted) trust policy and the source tags, an existing one is
// diffed and only missing attachments are added. Nothing is removed or
// updated in place, so a second run is a no-op.
//
// Failures on individual policies are collected and reported together; prior
// successful steps are never rolled back.
type Copier struct {
	source *Repository
	target *Repository
}

// NewCopier constructs a Copier between a source and target repository,
// typically backed by clients of two different profiles.
func NewCopier(source, target *Repository) *Copier {
	return &Copier{source: source, target: target}
}

// Copy replicates roleName into the target account. Replacements are applied
// to the trust policy and every inline policy. Managed policies are resolved
// by name in the target account and skipped with a warning when absent
// there.
func (c *Copier) Copy(ctx context.Context, roleName string, replacements []policy.Replacement) error {
	if len(replacements) > 0 {
		log.Warnf("replacements are literal substring rewrites; a key matching unrelated text will rewrite it too")
	}

	role, err := c.source.GetRole(ctx, roleName)
	if err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("role %s not found in the source account", roleName)
	}

	tags, err := c.source.ListRoleTags(ctx, roleName)
	if err != nil {
		return err
	}

	targetRole, err := c.target.GetRole(ctx, roleName)
	if err != nil {
		return err
	}

	if targetRole == nil {
		trust, err := policy.DecodeDocument(aws.ToString(role.AssumeRolePolicyDocument))
		if err != nil {
			return err
		}
		trust, err = policy.Substitute(trust, replacements)
		if err != nil {
			return err
		}

		if _, err := c.target.CreateRole(ctx, CreateRoleParams{
			RoleName:    roleName,
			TrustPolicy: trust,
			Description: aws.ToString(role.Description),
			Path:        aws.ToString(role.Path),
			Tags:        tags,
		}); err != nil {
			return err
		}
	} else {
		log.Infof("role %s already exists in the target account, reconciling", roleName)
	}

	return c.reconcilePolicies(ctx, roleName, roleName, replacements, true)
}

// CopyRolePolicies replicates the trust policy and all policies from one
// role to another within a single account, creating the target role when it
// does not exist. No substitutions are applied and managed policies are
// attached by their source ARN directly.
func CopyRolePolicies(ctx context.Context, repo *Repository, sourceRole, targetRole string) error {
	trust, err := repo.GetTrustPolicy(ctx, sourceRole)
	if err != nil {
		return err
	}

	target, err := repo.GetRole(ctx, targetRole)
	if err != nil {
		return err
	}
	if target == nil {
		if _, err := repo.CreateRole(ctx, CreateRoleParams{
			RoleName:    targetRole,
			TrustPolicy: trust,
		}); err != nil {
			return err
		}
	} else {
		log.Infof("role %s already exists, reconciling", targetRole)
	}

	c := &Copier{source: repo, target: repo}
	return c.reconcilePolicies(ctx, sourceRole, targetRole, nil, false)
}

// reconcilePolicies adds the source role's managed attachments and inline
// policies to the target role, skipping whatever is already there. With
// resolveByName set, managed policies are looked up by name in the target
// account instead of reusing the source ARN.
func (c *Copier) reconcilePolicies(ctx context.Context, sourceRole, targetRole string, replacements []policy.Replacement, resolveByName bool) error {
	var errs *multierror.Error

	sourceManaged, err := c.source.ListAttachedPolicies(ctx, sourceRole)
	if err != nil {
		return err
	}
	targetManaged, err := c.target.ListAttachedPolicies(ctx, targetRole)
	if err != nil {
		return err
	}
	attachedArns := make(map[string]bool, len(targetManaged))
	for _, p := range targetManaged {
		attachedArns[aws.ToString(p.PolicyArn)] = true
	}

	for _, p := range sourceManaged {
		policyName := aws.ToString(p.PolicyName)

		arn := aws.ToString(p.PolicyArn)
		if resolveByName {
			arn, err = c.target.FindPolicyArnByName(ctx, policyName, types.PolicyScopeTypeAll)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			if arn == "" {
				log.Warnf("managed policy %s not found in the target account, skipping", policyName)
				continue
			}
		}

		if attachedArns[arn] {
			log.Debugf("policy already attached: arn=%s", arn)
			continue
		}
		if err := c.target.AttachPolicy(ctx, targetRole, arn); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	sourceInline, err := c.source.ListInlinePolicyNames(ctx, sourceRole)
	if err != nil {
		return multierror.Append(errs, err).ErrorOrNil()
	}
	targetInline, err := c.target.ListInlinePolicyNames(ctx, targetRole)
	if err != nil {
		return multierror.Append(errs, err).ErrorOrNil()
	}

	for _, policyName := range sourceInline {
		if slices.Contains(targetInline, policyName) {
			log.Debugf("inline policy already present: name=%s", policyName)
			continue
		}

		doc, err := c.source.GetInlinePolicy(ctx, sourceRole, policyName)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		// A failed substitution means a bad replacement key; abort rather
		// than continue writing policies with it.
		doc, err = policy.Substitute(doc, replacements)
		if err != nil {
			return multierror.Append(errs, err).ErrorOrNil()
		}
		if err := c.target.PutInlinePolicy(ctx, targetRole, policyName, doc); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}
