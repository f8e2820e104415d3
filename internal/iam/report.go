// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/servicequotas"

	"github.com/awsadm/awsadm/internal/log"
)

// IAM role limits from Service Quotas, with the account defaults used when
// the quota lookup fails.
const (
	inlinePolicySizeQuotaCode = "L-15F2AE72"
	managedPolicyCountCode    = "L-F55EF660"

	defaultInlinePolicySizeLimit = 10240
	defaultManagedPolicyLimit    = 10
)

// PolicyEntry is one policy on a role. SizeBytes is the compact-serialized
// length for inline policies and zero for managed ones, matching how IAM
// counts the inline size quota.
type PolicyEntry struct {
	Name      string
	Type      string
	SizeBytes int
}

// QuotaReport summarizes a role's policies against the IAM limits.
type QuotaReport struct {
	RoleName     string
	Policies     []PolicyEntry
	InlineBytes  int
	InlineLimit  int
	ManagedCount int
	ManagedLimit int
}

// InlineExceeded reports whether the inline size usage has reached the limit.
func (r *QuotaReport) InlineExceeded() bool {
	return r.InlineBytes >= r.InlineLimit
}

// ManagedExceeded reports whether the managed attachment count has reached
// the limit.
func (r *QuotaReport) ManagedExceeded() bool {
	return r.ManagedCount >= r.ManagedLimit
}

// GetQuota fetches one quota value, falling back to the provided default
// when the lookup fails (the API needs its own permission that many
// operators lack).
func GetQuota(ctx context.Context, api QuotasAPI, serviceCode, quotaCode string, fallback int) int {
	out, err := api.GetServiceQuota(ctx, &servicequotas.GetServiceQuotaInput{
		ServiceCode: aws.String(serviceCode),
		QuotaCode:   aws.String(quotaCode),
	})
	if err != nil || out.Quota == nil || out.Quota.Value == nil {
		log.Debugf("quota lookup failed, using default: code=%s, default=%d, err=%v", quotaCode, fallback, err)
		return fallback
	}
	return int(*out.Quota.Value)
}

// Report builds the policy usage report for one role. Inline sizes are the
// byte lengths of the compact-serialized documents, summed and compared
// against the fetched (or default) quotas.
func (r *Repository) Report(ctx context.Context, quotas QuotasAPI, roleName string) (*QuotaReport, error) {
	role, err := r.GetRole(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, fmt.Errorf("role %s not found", roleName)
	}

	report := &QuotaReport{
		RoleName:     roleName,
		InlineLimit:  GetQuota(ctx, quotas, "iam", inlinePolicySizeQuotaCode, defaultInlinePolicySizeLimit),
		ManagedLimit: GetQuota(ctx, quotas, "iam", managedPolicyCountCode, defaultManagedPolicyLimit),
	}

	inlineNames, err := r.ListInlinePolicyNames(ctx, roleName)
	if err != nil {
		return nil, err
	}
	for _, name := range inlineNames {
		doc, err := r.GetInlinePolicy(ctx, roleName, name)
		if err != nil {
			return nil, err
		}
		serialized, err := doc.Marshal()
		if err != nil {
			return nil, err
		}
		report.Policies = append(report.Policies, PolicyEntry{
			Name:      name,
			Type:      "Inline",
			SizeBytes: len(serialized),
		})
		report.InlineBytes += len(serialized)
	}

	managed, err := r.ListAttachedPolicies(ctx, roleName)
	if err != nil {
		return nil, err
	}
	for _, p := range managed {
		report.Policies = append(report.Policies, PolicyEntry{
			Name: aws.ToString(p.PolicyName),
			Type: "Managed",
		})
	}
	report.ManagedCount = len(managed)

	return report, nil
}
