// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package athena runs templated queries and collects their results.
package athena

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/policy"
)

// pollInterval is how often a running query is checked for completion.
const pollInterval = 5 * time.Second

// API is the Athena surface the commands depend on. *athena.Client
// satisfies it.
type API interface {
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
}

// Runner executes queries. The sleep hook exists so tests do not wait out
// the poll interval.
type Runner struct {
	api   API
	sleep func(time.Duration)
}

// NewRunner returns a Runner backed by api.
func NewRunner(api API) *Runner {
	return &Runner{api: api, sleep: time.Sleep}
}

// RunParams describes one query run. The SQL template is rendered with
// Params before submission.
type RunParams struct {
	TemplateFile   string
	Params         map[string]interface{}
	Database       string
	OutputLocation string
}

// Result holds a completed query's rows, header included.
type Result struct {
	QueryExecutionID string
	Rows             [][]string
}

// Run renders the SQL template, starts the query, waits for it to finish,
// and returns the result rows. A failed or cancelled query is an error.
func (r *Runner) Run(ctx context.Context, params RunParams) (*Result, error) {
	sql, err := policy.Render(params.TemplateFile, policy.TemplateData{Params: params.Params})
	if err != nil {
		return nil, fmt.Errorf("render query template: %w", err)
	}

	input := &athena.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String(params.OutputLocation),
		},
	}
	if params.Database != "" {
		input.QueryExecutionContext = &types.QueryExecutionContext{
			Database: aws.String(params.Database),
		}
	}

	started, err := r.api.StartQueryExecution(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("start query: %w", err)
	}
	executionID := aws.ToString(started.QueryExecutionId)
	log.Infof("started query %s", executionID)

	if err := r.waitForQuery(ctx, executionID); err != nil {
		return nil, err
	}

	rows, err := r.fetchRows(ctx, executionID)
	if err != nil {
		return nil, err
	}
	return &Result{QueryExecutionID: executionID, Rows: rows}, nil
}

// waitForQuery polls until the query reaches a terminal state. There is no
// timeout ceiling; cancellation comes from ctx.
func (r *Runner) waitForQuery(ctx context.Context, executionID string) error {
	for {
		out, err := r.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(executionID),
		})
		if err != nil {
			return fmt.Errorf("get query execution %s: %w", executionID, err)
		}

		state := out.QueryExecution.Status.State
		switch state {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			reason := ""
			if out.QueryExecution.Status.StateChangeReason != nil {
				reason = ": " + aws.ToString(out.QueryExecution.Status.StateChangeReason)
			}
			return fmt.Errorf("query %s %s%s", executionID, state, reason)
		}

		log.Debugf("query %s is %s", executionID, state)
		if err := ctx.Err(); err != nil {
			return err
		}
		r.sleep(pollInterval)
	}
}

// fetchRows drains the result pages into string rows.
func (r *Runner) fetchRows(ctx context.Context, executionID string) ([][]string, error) {
	var rows [][]string
	paginator := athena.NewGetQueryResultsPaginator(r.api, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(executionID),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("get query results %s: %w", executionID, err)
		}
		for _, row := range page.ResultSet.Rows {
			var cells []string
			for _, datum := range row.Data {
				cells = append(cells, aws.ToString(datum.VarCharValue))
			}
			rows = append(rows, cells)
		}
	}
	return rows, nil
}
