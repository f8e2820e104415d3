// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package lambda reports on function fleet health and packages functions
// for deployment.
package lambda

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/awsadm/awsadm/internal/log"
)

// lastModifiedLayout is the timestamp format Lambda uses on function
// versions.
const lastModifiedLayout = "2006-01-02T15:04:05.000-0700"

// API is the Lambda surface the commands depend on. *lambda.Client
// satisfies it.
type API interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
	ListVersionsByFunction(ctx context.Context, params *lambda.ListVersionsByFunctionInput, optFns ...func(*lambda.Options)) (*lambda.ListVersionsByFunctionOutput, error)
}

// ColdVersion is a published version that has not been modified for longer
// than the requested age.
type ColdVersion struct {
	FunctionName string
	Version      string
	LastModified time.Time
	CodeSize     int64
}

// ColdStorage drains every function and its published versions and returns
// the versions older than daysOld. $LATEST is skipped.
func ColdStorage(ctx context.Context, api API, daysOld int, now time.Time) ([]ColdVersion, error) {
	threshold := now.AddDate(0, 0, -daysOld)

	var functions []types.FunctionConfiguration
	fnPaginator := lambda.NewListFunctionsPaginator(api, &lambda.ListFunctionsInput{})
	for fnPaginator.HasMorePages() {
		page, err := fnPaginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list functions: %w", err)
		}
		functions = append(functions, page.Functions...)
	}

	var cold []ColdVersion
	for _, fn := range functions {
		name := aws.ToString(fn.FunctionName)
		log.Tracef("checking versions of %s", name)

		paginator := lambda.NewListVersionsByFunctionPaginator(api, &lambda.ListVersionsByFunctionInput{
			FunctionName: fn.FunctionName,
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("list versions of %s: %w", name, err)
			}
			for _, version := range page.Versions {
				if aws.ToString(version.Version) == "$LATEST" {
					continue
				}
				modified, err := time.Parse(lastModifiedLayout, aws.ToString(version.LastModified))
				if err != nil {
					return nil, fmt.Errorf("parse LastModified of %s:%s: %w", name, aws.ToString(version.Version), err)
				}
				if modified.Before(threshold) {
					cold = append(cold, ColdVersion{
						FunctionName: name,
						Version:      aws.ToString(version.Version),
						LastModified: modified,
						CodeSize:     version.CodeSize,
					})
				}
			}
		}
	}

	sort.Slice(cold, func(i, j int) bool {
		if cold[i].FunctionName != cold[j].FunctionName {
			return cold[i].FunctionName < cold[j].FunctionName
		}
		return cold[i].LastModified.Before(cold[j].LastModified)
	})
	return cold, nil
}
