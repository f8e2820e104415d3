// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ecs

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type throttleError struct{}

func (throttleError) Error() string                 { return "ThrottlingException: rate exceeded" }
func (throttleError) ErrorCode() string             { return "ThrottlingException" }
func (throttleError) ErrorMessage() string          { return "rate exceeded" }
func (throttleError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

type fakeECS struct {
	arns     []string
	pageSize int

	throttleBudget map[string]int
	deleteFailures map[string]string
	deregistered   []string
	deleted        []string
}

func (f *fakeECS) ListTaskDefinitions(_ context.Context, params *awsecs.ListTaskDefinitionsInput, _ ...func(*awsecs.Options)) (*awsecs.ListTaskDefinitionsOutput, error) {
	var matched []string
	for _, arn := range f.arns {
		if params.FamilyPrefix == nil || strings.Contains(arn, aws.ToString(params.FamilyPrefix)) {
			matched = append(matched, arn)
		}
	}

	start := 0
	if params.NextToken != nil {
		var err error
		start, err = strconv.Atoi(aws.ToString(params.NextToken))
		if err != nil {
			return nil, err
		}
	}
	end := start + f.pageSize
	if f.pageSize == 0 || end > len(matched) {
		end = len(matched)
	}

	out := &awsecs.ListTaskDefinitionsOutput{TaskDefinitionArns: matched[start:end]}
	if end < len(matched) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeECS) DeregisterTaskDefinition(_ context.Context, params *awsecs.DeregisterTaskDefinitionInput, _ ...func(*awsecs.Options)) (*awsecs.DeregisterTaskDefinitionOutput, error) {
	arn := aws.ToString(params.TaskDefinition)
	if f.throttleBudget[arn] > 0 {
		f.throttleBudget[arn]--
		return nil, throttleError{}
	}
	f.deregistered = append(f.deregistered, arn)
	return &awsecs.DeregisterTaskDefinitionOutput{}, nil
}

func (f *fakeECS) DeleteTaskDefinitions(_ context.Context, params *awsecs.DeleteTaskDefinitionsInput, _ ...func(*awsecs.Options)) (*awsecs.DeleteTaskDefinitionsOutput, error) {
	out := &awsecs.DeleteTaskDefinitionsOutput{}
	for _, arn := range params.TaskDefinitions {
		if reason, ok := f.deleteFailures[arn]; ok {
			out.Failures = append(out.Failures, types.Failure{
				Arn:    aws.String(arn),
				Reason: aws.String(reason),
				Detail: aws.String("task definition is still in use"),
			})
			continue
		}
		f.deleted = append(f.deleted, arn)
	}
	return out, nil
}

func taskDefARN(family string, revision int) string {
	return "arn:aws:ecs:us-east-1:111122223333:task-definition/" + family + ":" + strconv.Itoa(revision)
}

func newManagerWithFake(api *fakeECS) (*Manager, *[]time.Duration) {
	m := NewManager(api)
	var slept []time.Duration
	m.sleep = func(d time.Duration) { slept = append(slept, d) }
	return m, &slept
}

func TestListTaskDefinitionsDrainsAllPages(t *testing.T) {
	api := &fakeECS{pageSize: 4}
	for i := 1; i <= 11; i++ {
		api.arns = append(api.arns, taskDefARN("worker", i))
	}

	m, _ := newManagerWithFake(api)
	arns, err := m.ListTaskDefinitions(context.Background(), "worker")
	require.NoError(t, err)
	assert.Len(t, arns, 11)
}

func TestDeregisterRetriesOnceAfterThrottle(t *testing.T) {
	throttled := taskDefARN("worker", 2)
	api := &fakeECS{
		arns:           []string{taskDefARN("worker", 1), throttled},
		throttleBudget: map[string]int{throttled: 1},
	}

	m, slept := newManagerWithFake(api)
	done, err := m.Deregister(context.Background(), "worker")
	require.NoError(t, err)
	assert.Equal(t, 2, done)
	assert.Equal(t, []time.Duration{throttleDelay}, *slept)
	assert.Len(t, api.deregistered, 2)
}

func TestDeregisterGivesUpAfterSecondThrottle(t *testing.T) {
	throttled := taskDefARN("worker", 1)
	api := &fakeECS{
		arns:           []string{throttled, taskDefARN("worker", 2)},
		throttleBudget: map[string]int{throttled: 2},
	}

	m, slept := newManagerWithFake(api)
	done, err := m.Deregister(context.Background(), "worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ThrottlingException")
	// The second definition is still processed.
	assert.Equal(t, 1, done)
	assert.Len(t, *slept, 1)
}

func TestDeleteDeregistersThenDeletes(t *testing.T) {
	api := &fakeECS{arns: []string{taskDefARN("batch", 1), taskDefARN("batch", 2)}}

	m, _ := newManagerWithFake(api)
	done, err := m.Delete(context.Background(), "batch")
	require.NoError(t, err)
	assert.Equal(t, 2, done)
	assert.Equal(t, api.deregistered, api.deleted)
}

func TestDeleteSurfacesReportedFailures(t *testing.T) {
	failing := taskDefARN("batch", 1)
	api := &fakeECS{
		arns:           []string{failing, taskDefARN("batch", 2)},
		deleteFailures: map[string]string{failing: "TaskDefinitionInUse"},
	}

	m, _ := newManagerWithFake(api)
	done, err := m.Delete(context.Background(), "batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TaskDefinitionInUse")
	// The failing definition does not count as done; the other still goes.
	assert.Equal(t, 1, done)
	assert.Len(t, api.deleted, 1)
}

func TestRetireEmptyFamily(t *testing.T) {
	m, _ := newManagerWithFake(&fakeECS{})
	done, err := m.Deregister(context.Background(), "absent")
	require.NoError(t, err)
	assert.Zero(t, done)
}
