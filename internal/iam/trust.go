// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package iam

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/awsadm/awsadm/internal/log"
)

// TrustStatementParams describes the statement appended to a role's trust
// policy. Condition, when present, must be a JSON object string.
type TrustStatementParams struct {
	Principal string
	Action    string
	Effect    string
	Condition string
}

// AddTrustStatement appends a statement to a role's trust policy and writes
// it back. A principal containing a dot is treated as a service principal,
// anything else as an AWS principal.
func (r *Repository) AddTrustStatement(ctx context.Context, roleName string, params TrustStatementParams) error {
	statement := map[string]interface{}{
		"Effect": params.Effect,
		"Action": params.Action,
	}

	if strings.Contains(params.Principal, ".") && !strings.HasPrefix(params.Principal, "arn:") {
		statement["Principal"] = map[string]interface{}{"Service": params.Principal}
	} else {
		statement["Principal"] = map[string]interface{}{"AWS": params.Principal}
	}

	if params.Condition != "" {
		var condition map[string]interface{}
		if err := json.Unmarshal([]byte(params.Condition), &condition); err != nil {
			return fmt.Errorf("invalid condition JSON: %w", err)
		}
		statement["Condition"] = condition
	}

	trust, err := r.GetTrustPolicy(ctx, roleName)
	if err != nil {
		return err
	}

	statements, _ := trust["Statement"].([]interface{})
	trust["Statement"] = append(statements, statement)

	if err := r.UpdateTrustPolicy(ctx, roleName, trust); err != nil {
		return err
	}
	log.Infof("added trust statement for principal %s to role %s", params.Principal, roleName)
	return nil
}
