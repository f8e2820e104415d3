// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleNakedCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "bare binary gets help",
			args:     []string{"awsadm"},
			expected: []string{"awsadm", "--help"},
		},
		{
			name:     "command present is untouched",
			args:     []string{"awsadm", "iam"},
			expected: []string{"awsadm", "iam"},
		},
		{
			name:     "flags are untouched",
			args:     []string{"awsadm", "s3", "list", "--color"},
			expected: []string{"awsadm", "s3", "list", "--color"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, handleNakedCommand(tt.args))
		})
	}
}

func TestHandleVersion(t *testing.T) {
	assert.True(t, handleVersion([]string{"awsadm", "--version"}))
	assert.True(t, handleVersion([]string{"awsadm", "-v"}))
	assert.False(t, handleVersion([]string{"awsadm", "iam", "roles"}))
}
