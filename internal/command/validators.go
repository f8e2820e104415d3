// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

func OutputValidator(value any) error {
	var validOutputFlagValues = []string{"text", "json", "yaml"}
	valid := false
	for _, v := range validOutputFlagValues {
		if v == value {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("must be one of %v", validOutputFlagValues)
	}
	return nil
}

func ValidationMethodValidator(value any) error {
	if value != "" && value != "email" && value != "dns" {
		return fmt.Errorf("must be one of [email dns]")
	}
	return nil
}

func SSEValidator(value any) error {
	if value != "" && value != "s3" && value != "kms" {
		return fmt.Errorf("must be one of [s3 kms]")
	}
	return nil
}

func VersioningValidator(value any) error {
	if value != "" && value != "enabled" && value != "suspended" {
		return fmt.Errorf("must be one of [enabled suspended]")
	}
	return nil
}
