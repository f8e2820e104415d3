// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/policy"
)

// emptyTrustPolicy is the fallback document used when AWS rejects a copied
// trust policy as malformed.
const emptyTrustPolicy = `{"Version":"2012-10-17","Statement":[]}`

// Repository wraps the IAM API with the access patterns the commands need.
// Every list operation drains the pagination cursor fully before filtering,
// since a matching item can appear on any page.
type Repository struct {
	api API
}

// NewRepository constructs a Repository over the given API.
func NewRepository(api API) *Repository {
	return &Repository{api: api}
}

// GetRole returns the role, or nil without error when it does not exist.
func (r *Repository) GetRole(ctx context.Context, roleName string) (*types.Role, error) {
	out, err := r.api.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(roleName)})
	if err != nil {
		var noSuchEntity *types.NoSuchEntityException
		if errors.As(err, &noSuchEntity) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role %s: %w", roleName, err)
	}
	return out.Role, nil
}

// CreateRoleParams carries the inputs for role creation.
type CreateRoleParams struct {
	RoleName    string
	TrustPolicy policy.Document
	Description string
	Path        string
	Tags        []types.Tag
}

// CreateRole creates a role. When AWS rejects the trust policy as malformed,
// the role is created once more with an empty statement list instead of
// failing the whole run.
func (r *Repository) CreateRole(ctx context.Context, params CreateRoleParams) (*types.Role, error) {
	trustJSON, err := params.TrustPolicy.Marshal()
	if err != nil {
		return nil, err
	}

	input := &iam.CreateRoleInput{
		RoleName:                 aws.String(params.RoleName),
		AssumeRolePolicyDocument: aws.String(trustJSON),
	}
	if params.Description != "" {
		input.Description = aws.String(params.Description)
	}
	if params.Path != "" {
		input.Path = aws.String(params.Path)
	}
	if len(params.Tags) > 0 {
		input.Tags = params.Tags
	}

	out, err := r.api.CreateRole(ctx, input)
	if err != nil {
		var malformed *types.MalformedPolicyDocumentException
		if !errors.As(err, &malformed) {
			return nil, fmt.Errorf("create role %s: %w", params.RoleName, err)
		}

		log.Errorf("malformed trust policy for role %s, creating with empty statement list: %v", params.RoleName, err)
		input.AssumeRolePolicyDocument = aws.String(emptyTrustPolicy)
		out, err = r.api.CreateRole(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("create role %s without trust policy: %w", params.RoleName, err)
		}
	}

	log.Infof("created role %s", params.RoleName)
	return out.Role, nil
}

// ListRoles returns all roles, optionally filtered by a name pattern. All
// pages are accumulated before the filter is applied.
func (r *Repository) ListRoles(ctx context.Context, pattern *regexp.Regexp) ([]types.Role, error) {
	var roles []types.Role
	paginator := iam.NewListRolesPaginator(r.api, &iam.ListRolesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		roles = append(roles, page.Roles...)
	}

	if pattern == nil {
		return roles, nil
	}

	filtered := make([]types.Role, 0, len(roles))
	for _, role := range roles {
		if pattern.MatchString(aws.ToString(role.RoleName)) {
			filtered = append(filtered, role)
		}
	}
	return filtered, nil
}

// ListRoleTags returns the tags on a role, or an empty list when the role
// does not exist.
func (r *Repository) ListRoleTags(ctx context.Context, roleName string) ([]types.Tag, error) {
	var tags []types.Tag
	paginator := iam.NewListRoleTagsPaginator(r.api, &iam.ListRoleTagsInput{RoleName: aws.String(roleName)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var noSuchEntity *types.NoSuchEntityException
			if errors.As(err, &noSuchEntity) {
				return nil, nil
			}
			return nil, fmt.Errorf("list tags for role %s: %w", roleName, err)
		}
		tags = append(tags, page.Tags...)
	}
	return tags, nil
}

// ListAttachedPolicies returns the managed policies attached to a role,
// draining all pages.
func (r *Repository) ListAttachedPolicies(ctx context.Context, roleName string) ([]types.AttachedPolicy, error) {
	var policies []types.AttachedPolicy
	paginator := iam.NewListAttachedRolePoliciesPaginator(r.api,
		&iam.ListAttachedRolePoliciesInput{RoleName: aws.String(roleName)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list attached policies for role %s: %w", roleName, err)
		}
		policies = append(policies, page.AttachedPolicies...)
	}
	return policies, nil
}

// ListInlinePolicyNames returns the names of a role's inline policies,
// draining all pages.
func (r *Repository) ListInlinePolicyNames(ctx context.Context, roleName string) ([]string, error) {
	var names []string
	paginator := iam.NewListRolePoliciesPaginator(r.api,
		&iam.ListRolePoliciesInput{RoleName: aws.String(roleName)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list inline policies for role %s: %w", roleName, err)
		}
		names = append(names, page.PolicyNames...)
	}
	return names, nil
}

// GetInlinePolicy returns the decoded document of one inline policy.
func (r *Repository) GetInlinePolicy(ctx context.Context, roleName, policyName string) (policy.Document, error) {
	out, err := r.api.GetRolePolicy(ctx, &iam.GetRolePolicyInput{
		RoleName:   aws.String(roleName),
		PolicyName: aws.String(policyName),
	})
	if err != nil {
		return nil, fmt.Errorf("get inline policy %s on role %s: %w", policyName, roleName, err)
	}
	return policy.DecodeDocument(aws.ToString(out.PolicyDocument))
}

// PutInlinePolicy writes an inline policy on a role.
func (r *Repository) PutInlinePolicy(ctx context.Context, roleName, policyName string, doc policy.Document) error {
	docJSON, err := doc.Marshal()
	if err != nil {
		return err
	}
	_, err = r.api.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(docJSON),
	})
	if err != nil {
		return fmt.Errorf("put inline policy %s on role %s: %w", policyName, roleName, err)
	}
	log.Infof("put inline policy %s on role %s", policyName, roleName)
	return nil
}

// AttachPolicy attaches a managed policy to a role by ARN.
func (r *Repository) AttachPolicy(ctx context.Context, roleName, policyArn string) error {
	_, err := r.api.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
	if err != nil {
		return fmt.Errorf("attach policy %s to role %s: %w", policyArn, roleName, err)
	}
	log.Infof("attached policy %s to role %s", policyArn, roleName)
	return nil
}

// DetachPolicy detaches a managed policy from a role by ARN.
func (r *Repository) DetachPolicy(ctx context.Context, roleName, policyArn string) error {
	_, err := r.api.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
	if err != nil {
		return fmt.Errorf("detach policy %s from role %s: %w", policyArn, roleName, err)
	}
	log.Infof("detached policy %s from role %s", policyArn, roleName)
	return nil
}

// FindPolicyArnByName searches all managed policies for one with the given
// name and returns its ARN, or "" when no policy matches. The full policy
// list is drained page by page before giving up.
func (r *Repository) FindPolicyArnByName(ctx context.Context, policyName string, scope types.PolicyScopeType) (string, error) {
	paginator := iam.NewListPoliciesPaginator(r.api, &iam.ListPoliciesInput{Scope: scope})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list policies: %w", err)
		}
		for _, p := range page.Policies {
			if aws.ToString(p.PolicyName) == policyName {
				return aws.ToString(p.Arn), nil
			}
		}
	}
	return "", nil
}

// ResolvePolicyArn accepts either a managed policy ARN or a name. Names are
// resolved by searching the account's policies; an unresolvable name is an
// error.
func (r *Repository) ResolvePolicyArn(ctx context.Context, policyArnOrName string, scope types.PolicyScopeType) (string, error) {
	if arnRe.MatchString(policyArnOrName) {
		return policyArnOrName, nil
	}
	arn, err := r.FindPolicyArnByName(ctx, policyArnOrName, scope)
	if err != nil {
		return "", err
	}
	if arn == "" {
		return "", fmt.Errorf("managed policy %s not found", policyArnOrName)
	}
	log.Infof("resolved policy %s to %s", policyArnOrName, arn)
	return arn, nil
}

var arnRe = regexp.MustCompile(`^arn:aws[a-zA-Z-]*:iam::`)

// GetManagedPolicyDocument returns the decoded default-version document of a
// managed policy.
func (r *Repository) GetManagedPolicyDocument(ctx context.Context, policyArn string) (policy.Document, error) {
	pol, err := r.api.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(policyArn)})
	if err != nil {
		return nil, fmt.Errorf("get policy %s: %w", policyArn, err)
	}
	version, err := r.api.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
		PolicyArn: aws.String(policyArn),
		VersionId: pol.Policy.DefaultVersionId,
	})
	if err != nil {
		return nil, fmt.Errorf("get policy version for %s: %w", policyArn, err)
	}
	return policy.DecodeDocument(aws.ToString(version.PolicyVersion.Document))
}

// RolesForPolicy returns the names of roles the managed policy is attached
// to, optionally filtered by a name pattern after all pages are drained.
func (r *Repository) RolesForPolicy(ctx context.Context, policyArn string, pattern *regexp.Regexp) ([]string, error) {
	var names []string
	paginator := iam.NewListEntitiesForPolicyPaginator(r.api, &iam.ListEntitiesForPolicyInput{
		PolicyArn:    aws.String(policyArn),
		EntityFilter: types.EntityTypeRole,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list entities for policy %s: %w", policyArn, err)
		}
		for _, role := range page.PolicyRoles {
			names = append(names, aws.ToString(role.RoleName))
		}
	}

	if pattern == nil {
		return names, nil
	}
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if pattern.MatchString(name) {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// GetTrustPolicy returns the decoded trust policy of a role. A missing role
// is an error here, unlike GetRole.
func (r *Repository) GetTrustPolicy(ctx context.Context, roleName string) (policy.Document, error) {
	role, err := r.GetRole(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, fmt.Errorf("role %s not found", roleName)
	}
	return policy.DecodeDocument(aws.ToString(role.AssumeRolePolicyDocument))
}

// UpdateTrustPolicy replaces a role's trust policy.
func (r *Repository) UpdateTrustPolicy(ctx context.Context, roleName string, doc policy.Document) error {
	docJSON, err := doc.Marshal()
	if err != nil {
		return err
	}
	_, err = r.api.UpdateAssumeRolePolicy(ctx, &iam.UpdateAssumeRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyDocument: aws.String(docJSON),
	})
	if err != nil {
		return fmt.Errorf("update trust policy for role %s: %w", roleName, err)
	}
	log.Infof("updated trust policy for role %s", roleName)
	return nil
}

// CreateManagedPolicy creates a customer managed policy.
func (r *Repository) CreateManagedPolicy(ctx context.Context, policyName string, doc policy.Document, description string) (*types.Policy, error) {
	docJSON, err := doc.Marshal()
	if err != nil {
		return nil, err
	}
	input := &iam.CreatePolicyInput{
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(docJSON),
	}
	if description != "" {
		input.Description = aws.String(description)
	}
	out, err := r.api.CreatePolicy(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create policy %s: %w", policyName, err)
	}
	log.Infof("created managed policy %s", policyName)
	return out.Policy, nil
}
