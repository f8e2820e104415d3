// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
)

func newTestCommand() *cli.Command {
	return &cli.Command{
		Metadata: map[string]interface{}{},
		Action:   func(context.Context, *cli.Command) error { return nil },
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Value: "text"},
			&cli.StringFlag{Name: "sort"},
			&cli.BoolFlag{Name: "color"},
			&cli.BoolFlag{Name: "titles"},
			&cli.IntFlag{Name: "padding", Value: 2},
		},
	}
}

func TestSortDataset(t *testing.T) {
	testData := []map[string]interface{}{
		{"name": "prod-c", "size": 3.0},
		{"name": "prod-a", "size": 1.0},
		{"name": "prod-b", "size": 2.0},
	}

	tests := []struct {
		name      string
		spec      string
		wantOrder []string
	}{
		{
			name:      "ascending by name",
			spec:      "name",
			wantOrder: []string{"prod-a", "prod-b", "prod-c"},
		},
		{
			name:      "descending by name",
			spec:      "-name",
			wantOrder: []string{"prod-c", "prod-b", "prod-a"},
		},
		{
			name:      "ascending by size",
			spec:      "size",
			wantOrder: []string{"prod-a", "prod-b", "prod-c"},
		},
		{
			name:      "descending by size",
			spec:      "-size",
			wantOrder: []string{"prod-c", "prod-b", "prod-a"},
		},
		{
			name:      "case sensitive",
			spec:      "!name",
			wantOrder: []string{"prod-a", "prod-b", "prod-c"},
		},
		{
			name:      "empty spec",
			spec:      "",
			wantOrder: []string{"prod-c", "prod-a", "prod-b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]map[string]interface{}, len(testData))
			copy(data, testData)
			SortDataset(data, tt.spec)
			for i, expectedName := range tt.wantOrder {
				assert.Equal(t, expectedName, data[i]["name"], "at index %d", i)
			}
		})
	}
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		emptyVal string
		want     string
	}{
		{
			name:  "string",
			value: "hello",
			want:  "hello",
		},
		{
			name:  "int",
			value: 42,
			want:  "42",
		},
		{
			name:  "int64",
			value: int64(10240),
			want:  "10240",
		},
		{
			name:  "float64",
			value: 42.5,
			want:  "42",
		},
		{
			name:  "bool true",
			value: true,
			want:  "true",
		},
		{
			name:  "nil default",
			value: nil,
			want:  "",
		},
		{
			name:     "nil custom",
			value:    nil,
			emptyVal: "-",
			want:     "-",
		},
		{
			name:  "slice",
			value: []string{"a", "b"},
			want:  `["a","b"]`,
		},
		{
			name:  "map",
			value: map[string]int{"x": 1},
			want:  `{"x":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCols(t *testing.T) {
	cols := Cols("name", "arn")
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Key)
	assert.Equal(t, "name", cols[0].Title)
	assert.Equal(t, "arn", cols[1].Key)
}

func TestSpitJSON(t *testing.T) {
	cmd := newTestCommand()
	err := cmd.Run(t.Context(), []string{"test", "--output", "json"})
	require.NoError(t, err)

	resultSet := []map[string]interface{}{
		{"name": "app-role", "size": 5100.0},
	}

	var buf bytes.Buffer
	Spit(resultSet, Cols("name", "size"), cmd, &buf)

	parsed := gjson.Parse(buf.String())
	require.True(t, parsed.IsArray())
	assert.Equal(t, "app-role", parsed.Get("0.name").String())
	assert.Equal(t, int64(5100), parsed.Get("0.size").Int())
}

func TestSpitYAML(t *testing.T) {
	cmd := newTestCommand()
	err := cmd.Run(t.Context(), []string{"test", "--output", "yaml"})
	require.NoError(t, err)

	resultSet := []map[string]interface{}{
		{"name": "app-role"},
	}

	var buf bytes.Buffer
	Spit(resultSet, Cols("name"), cmd, &buf)

	assert.Contains(t, buf.String(), "name: app-role")
}

func TestTableWriter(t *testing.T) {
	cmd := newTestCommand()
	err := cmd.Run(t.Context(), []string{"test", "--titles"})
	require.NoError(t, err)

	resultSet := []map[string]interface{}{
		{"name": "app-role", "arn": "arn:aws:iam::111122223333:role/app-role"},
		{"name": "ops-role", "arn": nil},
	}

	var buf bytes.Buffer
	TableWriter(resultSet, Cols("name", "arn"), cmd, &buf)

	out := buf.String()
	assert.Contains(t, out, "app-role")
	assert.Contains(t, out, "arn:aws:iam::111122223333:role/app-role")
	// Missing values render as a dash.
	assert.Contains(t, out, "-")
	// Titles row present.
	assert.Contains(t, out, "name")
}

func TestTableWriterEmpty(t *testing.T) {
	cmd := newTestCommand()
	err := cmd.Run(t.Context(), []string{"test"})
	require.NoError(t, err)

	var buf bytes.Buffer
	TableWriter(nil, Cols("name"), cmd, &buf)
	assert.Empty(t, buf.String())
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		substr   string
		useColor bool
		same     bool
	}{
		{
			name:     "no color passthrough",
			s:        "a-prod-1",
			substr:   "prod",
			useColor: false,
			same:     true,
		},
		{
			name:     "empty substr passthrough",
			s:        "a-prod-1",
			substr:   "",
			useColor: true,
			same:     true,
		},
		{
			name:     "no match passthrough",
			s:        "a-dev-1",
			substr:   "prod",
			useColor: true,
			same:     true,
		},
		{
			name:     "match wraps",
			s:        "a-prod-1",
			substr:   "prod",
			useColor: true,
			same:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Highlight(tt.s, tt.substr, tt.useColor)
			if tt.same {
				assert.Equal(t, tt.s, got)
			} else {
				assert.NotEqual(t, tt.s, got)
				assert.Contains(t, got, tt.substr)
			}
		})
	}
}
