// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package ecs retires task definitions by family.
package ecs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-multierror"

	"github.com/awsadm/awsadm/internal/log"
)

// throttleDelay is how long to back off before the single retry of a
// throttled call.
const throttleDelay = 15 * time.Second

// API is the ECS surface the commands depend on. *ecs.Client satisfies it.
type API interface {
	DeleteTaskDefinitions(ctx context.Context, params *ecs.DeleteTaskDefinitionsInput, optFns ...func(*ecs.Options)) (*ecs.DeleteTaskDefinitionsOutput, error)
	DeregisterTaskDefinition(ctx context.Context, params *ecs.DeregisterTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DeregisterTaskDefinitionOutput, error)
	ListTaskDefinitions(ctx context.Context, params *ecs.ListTaskDefinitionsInput, optFns ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error)
}

// Manager runs task definition maintenance. The sleep hook exists so tests
// do not wait out the throttle delay.
type Manager struct {
	api   API
	sleep func(time.Duration)
}

// NewManager returns a Manager backed by api.
func NewManager(api API) *Manager {
	return &Manager{api: api, sleep: time.Sleep}
}

// ListTaskDefinitions drains every task definition ARN for the family
// prefix.
func (m *Manager) ListTaskDefinitions(ctx context.Context, familyPrefix string) ([]string, error) {
	input := &ecs.ListTaskDefinitionsInput{}
	if familyPrefix != "" {
		input.FamilyPrefix = aws.String(familyPrefix)
	}

	var arns []string
	paginator := ecs.NewListTaskDefinitionsPaginator(m.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list task definitions: %w", err)
		}
		arns = append(arns, page.TaskDefinitionArns...)
	}
	return arns, nil
}

// Deregister deregisters every task definition of the family. Failures on
// individual definitions are collected; the run continues.
func (m *Manager) Deregister(ctx context.Context, familyPrefix string) (int, error) {
	return m.retire(ctx, familyPrefix, false)
}

// Delete deregisters and then deletes every task definition of the family.
func (m *Manager) Delete(ctx context.Context, familyPrefix string) (int, error) {
	return m.retire(ctx, familyPrefix, true)
}

func (m *Manager) retire(ctx context.Context, familyPrefix string, remove bool) (int, error) {
	arns, err := m.ListTaskDefinitions(ctx, familyPrefix)
	if err != nil {
		return 0, err
	}
	if len(arns) == 0 {
		log.Infof("no task definitions found for family %s", familyPrefix)
		return 0, nil
	}

	var errs *multierror.Error
	done := 0
	for _, arn := range arns {
		if err := m.deregisterOne(ctx, arn); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("deregister %s: %w", arn, err))
			continue
		}
		if remove {
			if err := m.deleteOne(ctx, arn); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("delete %s: %w", arn, err))
				continue
			}
		}
		done++
	}
	return done, errs.ErrorOrNil()
}

// deregisterOne deregisters a single task definition, retrying once after a
// fixed delay when ECS throttles the call.
func (m *Manager) deregisterOne(ctx context.Context, arn string) error {
	err := m.callDeregister(ctx, arn)
	if err == nil || !isThrottle(err) {
		return err
	}
	log.Warnf("throttled deregistering %s, retrying in %s", arn, throttleDelay)
	m.sleep(throttleDelay)
	return m.callDeregister(ctx, arn)
}

func (m *Manager) callDeregister(ctx context.Context, arn string) error {
	_, err := m.api.DeregisterTaskDefinition(ctx, &ecs.DeregisterTaskDefinitionInput{
		TaskDefinition: aws.String(arn),
	})
	if err == nil {
		log.Debugf("deregistered %s", arn)
	}
	return err
}

func (m *Manager) deleteOne(ctx context.Context, arn string) error {
	err := m.callDelete(ctx, arn)
	if err == nil || !isThrottle(err) {
		return err
	}
	log.Warnf("throttled deleting %s, retrying in %s", arn, throttleDelay)
	m.sleep(throttleDelay)
	return m.callDelete(ctx, arn)
}

func (m *Manager) callDelete(ctx context.Context, arn string) error {
	out, err := m.api.DeleteTaskDefinitions(ctx, &ecs.DeleteTaskDefinitionsInput{
		TaskDefinitions: []string{arn},
	})
	if err != nil {
		return err
	}
	// Per-definition failures come back in the output, not as an error.
	if len(out.Failures) > 0 {
		failure := out.Failures[0]
		return fmt.Errorf("%s: %s", aws.ToString(failure.Reason), aws.ToString(failure.Detail))
	}
	log.Debugf("deleted %s", arn)
	return nil
}

// isThrottle reports whether err is an ECS throttling response.
func isThrottle(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ThrottlingException"
	}
	return false
}
