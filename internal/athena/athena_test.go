// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package athena

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAthena walks a query through the given states, one per poll.
type fakeAthena struct {
	states     []types.QueryExecutionState
	stateIndex int
	failReason string

	startInput *awsathena.StartQueryExecutionInput
	rows       [][]string
}

func (f *fakeAthena) StartQueryExecution(_ context.Context, params *awsathena.StartQueryExecutionInput, _ ...func(*awsathena.Options)) (*awsathena.StartQueryExecutionOutput, error) {
	f.startInput = params
	return &awsathena.StartQueryExecutionOutput{QueryExecutionId: aws.String("qe-123")}, nil
}

func (f *fakeAthena) GetQueryExecution(_ context.Context, _ *awsathena.GetQueryExecutionInput, _ ...func(*awsathena.Options)) (*awsathena.GetQueryExecutionOutput, error) {
	state := f.states[f.stateIndex]
	if f.stateIndex < len(f.states)-1 {
		f.stateIndex++
	}

	status := &types.QueryExecutionStatus{State: state}
	if f.failReason != "" {
		status.StateChangeReason = aws.String(f.failReason)
	}
	return &awsathena.GetQueryExecutionOutput{
		QueryExecution: &types.QueryExecution{Status: status},
	}, nil
}

func (f *fakeAthena) GetQueryResults(_ context.Context, _ *awsathena.GetQueryResultsInput, _ ...func(*awsathena.Options)) (*awsathena.GetQueryResultsOutput, error) {
	resultSet := &types.ResultSet{}
	for _, row := range f.rows {
		var data []types.Datum
		for _, cell := range row {
			data = append(data, types.Datum{VarCharValue: aws.String(cell)})
		}
		resultSet.Rows = append(resultSet.Rows, types.Row{Data: data})
	}
	return &awsathena.GetQueryResultsOutput{ResultSet: resultSet}, nil
}

func writeQueryTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query.sql.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestRunner(api API) (*Runner, *[]time.Duration) {
	r := NewRunner(api)
	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }
	return r, &slept
}

func TestRunPollsUntilSucceeded(t *testing.T) {
	api := &fakeAthena{
		states: []types.QueryExecutionState{
			types.QueryExecutionStateQueued,
			types.QueryExecutionStateRunning,
			types.QueryExecutionStateSucceeded,
		},
		rows: [][]string{{"day", "count"}, {"2026-08-29", "42"}},
	}
	template := writeQueryTemplate(t, "SELECT day, count(*) FROM {{.Params.table}} GROUP BY day")

	r, slept := newTestRunner(api)
	result, err := r.Run(context.Background(), RunParams{
		TemplateFile:   template,
		Params:         map[string]interface{}{"table": "events"},
		Database:       "analytics",
		OutputLocation: "s3://query-results/",
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT day, count(*) FROM events GROUP BY day", aws.ToString(api.startInput.QueryString))
	assert.Equal(t, "analytics", aws.ToString(api.startInput.QueryExecutionContext.Database))
	assert.Equal(t, "s3://query-results/", aws.ToString(api.startInput.ResultConfiguration.OutputLocation))

	// Two non-terminal polls before success.
	assert.Equal(t, []time.Duration{pollInterval, pollInterval}, *slept)
	assert.Equal(t, "qe-123", result.QueryExecutionID)
	assert.Equal(t, [][]string{{"day", "count"}, {"2026-08-29", "42"}}, result.Rows)
}

func TestRunFailedQuery(t *testing.T) {
	api := &fakeAthena{
		states:     []types.QueryExecutionState{types.QueryExecutionStateFailed},
		failReason: "SYNTAX_ERROR: line 1",
	}

	r, _ := newTestRunner(api)
	_, err := r.Run(context.Background(), RunParams{
		TemplateFile:   writeQueryTemplate(t, "SELECT 1"),
		OutputLocation: "s3://query-results/",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAILED")
	assert.Contains(t, err.Error(), "SYNTAX_ERROR")
}

func TestRunCancelledQuery(t *testing.T) {
	api := &fakeAthena{
		states: []types.QueryExecutionState{types.QueryExecutionStateCancelled},
	}

	r, _ := newTestRunner(api)
	_, err := r.Run(context.Background(), RunParams{
		TemplateFile:   writeQueryTemplate(t, "SELECT 1"),
		OutputLocation: "s3://query-results/",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CANCELLED")
}

func TestRunMissingTemplateParam(t *testing.T) {
	r, _ := newTestRunner(&fakeAthena{})
	_, err := r.Run(context.Background(), RunParams{
		TemplateFile: writeQueryTemplate(t, "SELECT * FROM {{.Params.table}}"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render query template")
}
