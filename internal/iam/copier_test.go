// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/awsadm/awsadm/internal/policy"
)

const logsPolicyJSON = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"logs:CreateLogGroup","Resource":"arn:aws:logs:us-east-1:111122223333:*"},{"Effect":"Allow","Action":"logs:PutLogEvents","Resource":"arn:aws:logs:us-east-1:111122223333:log-group:*"}]}`

// sourceWithAppRole builds a source account holding app-role with one inline
// policy and one attached managed policy.
func sourceWithAppRole() *fakeAPI {
	api := newFakeAPI()
	api.addRole("app-role", testTrust)
	api.addInline("app-role", "logs-policy", logsPolicyJSON)
	api.addManagedPolicy("base", "arn:aws:iam::111122223333:policy/base")
	api.attached["app-role"] = []types.AttachedPolicy{
		{
			PolicyName: aws.String("base"),
			PolicyArn:  aws.String("arn:aws:iam::111122223333:policy/base"),
		},
	}
	return api
}

func TestCopyCreatesRoleInTarget(t *testing.T) {
	source := sourceWithAppRole()
	target := newFakeAPI()
	target.addManagedPolicy("base", "arn:aws:iam::444455556666:policy/base")

	copier := NewCopier(NewRepository(source), NewRepository(target))
	replacements := []policy.Replacement{{Old: "111122223333", New: "444455556666"}}
	require.NoError(t, copier.Copy(context.Background(), "app-role", replacements))

	// Role created with the substituted trust policy.
	created, ok := target.roles["app-role"]
	require.True(t, ok)
	trust := aws.ToString(created.AssumeRolePolicyDocument)
	assert.Equal(t,
		"arn:aws:iam::444455556666:root",
		gjson.Get(trust, "Statement.0.Principal.AWS").String())

	// Inline policy copied with substitutions applied.
	inline := target.inline["app-role"]["logs-policy"]
	require.NotEmpty(t, inline)
	assert.NotContains(t, inline, "111122223333")
	assert.Contains(t, inline, "444455556666")

	// Managed policy attached via the target account's own ARN.
	require.Len(t, target.attached["app-role"], 1)
	assert.Equal(t,
		"arn:aws:iam::444455556666:policy/base",
		aws.ToString(target.attached["app-role"][0].PolicyArn))
}

func TestCopySkipsUnresolvableManagedPolicy(t *testing.T) {
	source := sourceWithAppRole()
	target := newFakeAPI()

	copier := NewCopier(NewRepository(source), NewRepository(target))
	require.NoError(t, copier.Copy(context.Background(), "app-role", nil))

	// The managed policy does not exist in the target account: skipped with
	// a warning, not an error, and the rest of the copy still lands.
	assert.Empty(t, target.attached["app-role"])
	assert.NotEmpty(t, target.inline["app-role"]["logs-policy"])
}

func TestCopyIsIdempotent(t *testing.T) {
	source := sourceWithAppRole()
	target := newFakeAPI()
	target.addManagedPolicy("base", "arn:aws:iam::444455556666:policy/base")

	copier := NewCopier(NewRepository(source), NewRepository(target))
	require.NoError(t, copier.Copy(context.Background(), "app-role", nil))

	putsAfterFirst := target.putPolicyCalls
	attachesAfterFirst := target.attachCalls

	require.NoError(t, copier.Copy(context.Background(), "app-role", nil))

	assert.Equal(t, putsAfterFirst, target.putPolicyCalls, "second run must not rewrite inline policies")
	assert.Equal(t, attachesAfterFirst, target.attachCalls, "second run must not re-attach managed policies")
	assert.Len(t, target.attached["app-role"], 1)
}

func TestCopyMissingSourceRole(t *testing.T) {
	copier := NewCopier(NewRepository(newFakeAPI()), NewRepository(newFakeAPI()))
	err := copier.Copy(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in the source account")
}

func TestCopyTagsTravelWithRole(t *testing.T) {
	source := sourceWithAppRole()
	source.tags["app-role"] = []types.Tag{
		{Key: aws.String("Team"), Value: aws.String("platform")},
	}
	target := newFakeAPI()

	copier := NewCopier(NewRepository(source), NewRepository(target))
	require.NoError(t, copier.Copy(context.Background(), "app-role", nil))

	require.Len(t, target.tags["app-role"], 1)
	assert.Equal(t, "Team", aws.ToString(target.tags["app-role"][0].Key))
}

func TestCopyRolePoliciesSameAccount(t *testing.T) {
	api := sourceWithAppRole()
	repo := NewRepository(api)

	require.NoError(t, CopyRolePolicies(context.Background(), repo, "app-role", "app-role-copy"))

	// Same-account copy keeps the source ARN for managed attachments.
	require.Len(t, api.attached["app-role-copy"], 1)
	assert.Equal(t,
		"arn:aws:iam::111122223333:policy/base",
		aws.ToString(api.attached["app-role-copy"][0].PolicyArn))
	assert.JSONEq(t, logsPolicyJSON, api.inline["app-role-copy"]["logs-policy"])

	// Reconciling an existing target adds nothing.
	puts := api.putPolicyCalls
	attaches := api.attachCalls
	require.NoError(t, CopyRolePolicies(context.Background(), repo, "app-role", "app-role-copy"))
	assert.Equal(t, puts, api.putPolicyCalls)
	assert.Equal(t, attaches, api.attachCalls)
}
