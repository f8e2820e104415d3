// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/awsadm/awsadm/internal/policy"
)

// PermissionMatch records one policy granting the checked permission.
type PermissionMatch struct {
	PolicyType string
	PolicyName string
	PolicyArn  string
	Conditions interface{}
}

// matchResource matches an AWS resource pattern (with * and ? wildcards)
// against a concrete resource ARN.
func matchResource(pattern, resource string) bool {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, ".*")
	escaped = strings.ReplaceAll(escaped, `\?`, ".")
	re, err := regexp.Compile("^" + escaped + "$")
	if err != nil {
		return false
	}
	return re.MatchString(resource)
}

// CheckDocument reports whether a policy document allows the given action on
// the given resource. Only Allow statements are considered; the statement's
// conditions, if any, are returned with the match.
func CheckDocument(doc policy.Document, service, action, resource string) (bool, interface{}) {
	actionFull := service + ":" + action

	statements, _ := doc["Statement"].([]interface{})
	for _, raw := range statements {
		statement, ok := raw.(map[string]interface{})
		if !ok || statement["Effect"] != "Allow" {
			continue
		}

		if !containsString(statement["Action"], actionFull) {
			continue
		}

		for _, res := range asStrings(statement["Resource"]) {
			if matchResource(res, resource) {
				return true, statement["Condition"]
			}
		}
	}
	return false, nil
}

// asStrings normalizes a JSON value that may be a string or a string list.
func asStrings(value interface{}) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(value interface{}, want string) bool {
	for _, s := range asStrings(value) {
		if s == want {
			return true
		}
	}
	return false
}

// CheckPermission checks every policy attached to a role, inline and
// managed, for the given service action on a resource and returns the
// policies that grant it.
func (r *Repository) CheckPermission(ctx context.Context, roleName, service, action, resource string) ([]PermissionMatch, error) {
	var matches []PermissionMatch

	inlineNames, err := r.ListInlinePolicyNames(ctx, roleName)
	if err != nil {
		return nil, err
	}
	for _, name := range inlineNames {
		doc, err := r.GetInlinePolicy(ctx, roleName, name)
		if err != nil {
			return nil, err
		}
		if ok, conditions := CheckDocument(doc, service, action, resource); ok {
			matches = append(matches, PermissionMatch{
				PolicyType: "Inline",
				PolicyName: name,
				Conditions: conditions,
			})
		}
	}

	managed, err := r.ListAttachedPolicies(ctx, roleName)
	if err != nil {
		return nil, err
	}
	for _, p := range managed {
		arn := aws.ToString(p.PolicyArn)
		doc, err := r.GetManagedPolicyDocument(ctx, arn)
		if err != nil {
			return nil, err
		}
		if ok, conditions := CheckDocument(doc, service, action, resource); ok {
			matches = append(matches, PermissionMatch{
				PolicyType: "Managed",
				PolicyName: aws.ToString(p.PolicyName),
				PolicyArn:  arn,
				Conditions: conditions,
			})
		}
	}

	return matches, nil
}
