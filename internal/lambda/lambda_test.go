// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package lambda

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLambda struct {
	functions []string
	versions  map[string][]types.FunctionConfiguration
}

func (f *fakeLambda) ListFunctions(_ context.Context, _ *awslambda.ListFunctionsInput, _ ...func(*awslambda.Options)) (*awslambda.ListFunctionsOutput, error) {
	out := &awslambda.ListFunctionsOutput{}
	for _, name := range f.functions {
		out.Functions = append(out.Functions, types.FunctionConfiguration{
			FunctionName: aws.String(name),
		})
	}
	return out, nil
}

func (f *fakeLambda) ListVersionsByFunction(_ context.Context, params *awslambda.ListVersionsByFunctionInput, _ ...func(*awslambda.Options)) (*awslambda.ListVersionsByFunctionOutput, error) {
	return &awslambda.ListVersionsByFunctionOutput{
		Versions: f.versions[aws.ToString(params.FunctionName)],
	}, nil
}

func version(number string, modified time.Time, size int64) types.FunctionConfiguration {
	return types.FunctionConfiguration{
		Version:      aws.String(number),
		LastModified: aws.String(modified.Format(lastModifiedLayout)),
		CodeSize:     size,
	}
}

func TestColdStorageFindsOldVersions(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	api := &fakeLambda{
		functions: []string{"ingest", "report"},
		versions: map[string][]types.FunctionConfiguration{
			"ingest": {
				version("$LATEST", now.AddDate(0, 0, -400), 1024),
				version("1", now.AddDate(0, 0, -200), 2048),
				version("2", now.AddDate(0, 0, -10), 4096),
			},
			"report": {
				version("1", now.AddDate(0, 0, -100), 512),
			},
		},
	}

	cold, err := ColdStorage(context.Background(), api, 90, now)
	require.NoError(t, err)
	require.Len(t, cold, 2)

	assert.Equal(t, "ingest", cold[0].FunctionName)
	assert.Equal(t, "1", cold[0].Version)
	assert.Equal(t, int64(2048), cold[0].CodeSize)
	assert.Equal(t, "report", cold[1].FunctionName)
}

func TestColdStorageSkipsLatest(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	api := &fakeLambda{
		functions: []string{"ingest"},
		versions: map[string][]types.FunctionConfiguration{
			"ingest": {version("$LATEST", now.AddDate(-2, 0, 0), 1024)},
		},
	}

	cold, err := ColdStorage(context.Background(), api, 30, now)
	require.NoError(t, err)
	assert.Empty(t, cold)
}
