// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestAddTrustStatementAWSPrincipal(t *testing.T) {
	api := newFakeAPI()
	api.addRole("app-role", testTrust)
	repo := NewRepository(api)

	err := repo.AddTrustStatement(context.Background(), "app-role", TrustStatementParams{
		Principal: "arn:aws:iam::444455556666:root",
		Action:    "sts:AssumeRole",
		Effect:    "Allow",
		Condition: `{"StringEquals": {"sts:ExternalId": "12345"}}`,
	})
	require.NoError(t, err)

	trust := aws.ToString(api.roles["app-role"].AssumeRolePolicyDocument)
	statements := gjson.Get(trust, "Statement")
	require.Equal(t, int64(2), int64(len(statements.Array())))

	added := statements.Array()[1]
	assert.Equal(t, "arn:aws:iam::444455556666:root", added.Get("Principal.AWS").String())
	assert.Equal(t, "sts:AssumeRole", added.Get("Action").String())
	assert.Equal(t, "12345", added.Get("Condition.StringEquals.sts:ExternalId").String())
}

func TestAddTrustStatementServicePrincipal(t *testing.T) {
	api := newFakeAPI()
	api.addRole("app-role", testTrust)
	repo := NewRepository(api)

	err := repo.AddTrustStatement(context.Background(), "app-role", TrustStatementParams{
		Principal: "ec2.amazonaws.com",
		Action:    "sts:AssumeRole",
		Effect:    "Allow",
	})
	require.NoError(t, err)

	trust := aws.ToString(api.roles["app-role"].AssumeRolePolicyDocument)
	added := gjson.Get(trust, "Statement.1")
	assert.Equal(t, "ec2.amazonaws.com", added.Get("Principal.Service").String())
	assert.False(t, added.Get("Condition").Exists())
}

func TestAddTrustStatementRejectsBadCondition(t *testing.T) {
	api := newFakeAPI()
	api.addRole("app-role", testTrust)
	repo := NewRepository(api)

	err := repo.AddTrustStatement(context.Background(), "app-role", TrustStatementParams{
		Principal: "arn:aws:iam::444455556666:root",
		Action:    "sts:AssumeRole",
		Effect:    "Allow",
		Condition: "{not json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition")
}

func TestAddTrustStatementMissingRole(t *testing.T) {
	repo := NewRepository(newFakeAPI())
	err := repo.AddTrustStatement(context.Background(), "ghost", TrustStatementParams{
		Principal: "ec2.amazonaws.com",
		Action:    "sts:AssumeRole",
		Effect:    "Allow",
	})
	require.Error(t, err)
}
