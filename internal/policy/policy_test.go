// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const trustPolicyJSON = `{
	"Version": "2012-10-17",
	"Statement": [
		{
			"Effect": "Allow",
			"Principal": {"AWS": "arn:aws:iam::111122223333:root"},
			"Action": "sts:AssumeRole"
		}
	]
}`

func TestSubstituteIdentity(t *testing.T) {
	doc, err := Parse([]byte(trustPolicyJSON))
	require.NoError(t, err)

	got, err := Substitute(doc, nil)
	require.NoError(t, err)

	wantJSON, err := doc.Marshal()
	require.NoError(t, err)
	gotJSON, err := got.Marshal()
	require.NoError(t, err)
	assert.Equal(t, wantJSON, gotJSON)
}

func TestSubstituteReplacesEverywhere(t *testing.T) {
	doc, err := Parse([]byte(trustPolicyJSON))
	require.NoError(t, err)

	got, err := Substitute(doc, []Replacement{
		{Old: "111122223333", New: "444455556666"},
	})
	require.NoError(t, err)

	gotJSON, err := got.Marshal()
	require.NoError(t, err)

	principal := gjson.Get(gotJSON, "Statement.0.Principal.AWS").String()
	assert.Equal(t, "arn:aws:iam::444455556666:root", principal)
	assert.NotContains(t, gotJSON, "111122223333")
}

func TestSubstituteOrdered(t *testing.T) {
	doc, err := Parse([]byte(`{"Resource": "arn:aws:s3:::old-bucket/*"}`))
	require.NoError(t, err)

	// The second replacement acts on text introduced by the first.
	got, err := Substitute(doc, []Replacement{
		{Old: "old-bucket", New: "mid-bucket"},
		{Old: "mid-bucket", New: "new-bucket"},
	})
	require.NoError(t, err)

	gotJSON, err := got.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:s3:::new-bucket/*", gjson.Get(gotJSON, "Resource").String())
}

func TestSubstituteCorruptingKeyAborts(t *testing.T) {
	doc, err := Parse([]byte(trustPolicyJSON))
	require.NoError(t, err)

	_, err = Substitute(doc, []Replacement{
		{Old: `"`, New: ""},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "substitution")
}

func TestParseReplacements(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    []Replacement
		wantErr bool
	}{
		{
			name: "empty",
			arg:  "",
			want: nil,
		},
		{
			name: "single pair",
			arg:  "111122223333=444455556666",
			want: []Replacement{{Old: "111122223333", New: "444455556666"}},
		},
		{
			name: "multiple pairs keep order",
			arg:  "old_env=new_env,111=222",
			want: []Replacement{
				{Old: "old_env", New: "new_env"},
				{Old: "111", New: "222"},
			},
		},
		{
			name: "value containing equals",
			arg:  "key=a=b",
			want: []Replacement{{Old: "key", New: "a=b"}},
		},
		{
			name:    "missing equals",
			arg:     "nodelimiter",
			wantErr: true,
		},
		{
			name:    "empty key",
			arg:     "=value",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReplacements(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTags(t *testing.T) {
	tags := ParseTags([]string{"Team=platform", " Env = prod ", "bad-tag"})
	require.Len(t, tags, 2)
	assert.Equal(t, Tag{Key: "Team", Value: "platform"}, tags[0])
	assert.Equal(t, Tag{Key: "Env", Value: "prod"}, tags[1])
}

func TestDecodeDocument(t *testing.T) {
	encoded := "%7B%22Version%22%3A%222012-10-17%22%2C%22Statement%22%3A%5B%5D%7D"
	doc, err := DecodeDocument(encoded)
	require.NoError(t, err)
	assert.Equal(t, "2012-10-17", doc["Version"])
}

func TestRenderDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust.json.tmpl")
	tmpl := `{
	"Version": "2012-10-17",
	"Statement": [
		{
			"Effect": "Allow",
			"Principal": {"AWS": "arn:aws:iam::{{.AccountID}}:root"},
			"Action": "sts:AssumeRole"
		}
	]
}`
	require.NoError(t, os.WriteFile(path, []byte(tmpl), 0o644))

	doc, err := RenderDocument(path, TemplateData{AccountID: "111122223333", Region: "us-east-1"})
	require.NoError(t, err)

	raw, err := doc.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		"arn:aws:iam::111122223333:root",
		gjson.Get(raw, "Statement.0.Principal.AWS").String())
}

func TestRenderMissingFile(t *testing.T) {
	_, err := Render(filepath.Join(t.TempDir(), "missing.tmpl"), TemplateData{})
	require.Error(t, err)
}
