// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/awsadm/awsadm/internal/log"
)

// TemplateData carries the values available to policy and query templates.
// AccountID and Region are always populated from the session; Params holds
// user-supplied values.
type TemplateData struct {
	AccountID string
	Region    string
	Params    map[string]interface{}
}

// Render loads the template file at path and renders it with the provided
// data. Referencing an undefined key is an error so that typos surface
// before anything is sent to AWS.
func Render(path string, data TemplateData) (string, error) {
	name := filepath.Base(path)
	tmpl, err := template.New(name).Option("missingkey=error").ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", path, err)
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", path, err)
	}

	log.Debugf("template rendered: path=%s, bytes=%d", path, b.Len())
	return b.String(), nil
}

// RenderDocument renders a template expected to produce a JSON policy
// document and parses the result.
func RenderDocument(path string, data TemplateData) (Document, error) {
	rendered, err := Render(path, data)
	if err != nil {
		return nil, err
	}
	return Parse([]byte(rendered))
}
