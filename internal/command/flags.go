// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/config"
)

// NewGlobalFlags returns the flags every subcommand carries: credentials
// selection plus output shaping.
func NewGlobalFlags(ns string) (flags []cli.Flag) {
	flags = []cli.Flag{
		NewProfileFlag(ns),
		NewRegionFlag(ns),
		&cli.BoolFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.IntFlag{
			Name:  "padding",
			Usage: "cell padding for text output",
			Value: 1,
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
		},
		&cli.BoolFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Value:   false,
		},
	}

	return
}

// NewProfileFlag constructs the "profile" flag, namespaced to the command in
// the config file.
func NewProfileFlag(ns string) *cli.StringFlag {
	flag := &cli.StringFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "AWS named profile to use",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("AWSADM_PROFILE"),
			cli.EnvVar("AWS_PROFILE"),
		),
	}
	return NameSpacedValueChainFlagFromConfigFile(ns, config.Config.Source, flag)
}

// NewRegionFlag constructs the "region" flag, namespaced to the command in
// the config file.
func NewRegionFlag(ns string) *cli.StringFlag {
	flag := &cli.StringFlag{
		Name:    "region",
		Aliases: []string{"r"},
		Usage:   "AWS region name",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("AWSADM_REGION"),
			cli.EnvVar("AWS_REGION"),
		),
	}
	return NameSpacedValueChainFlagFromConfigFile(ns, config.Config.Source, flag)
}

// NewYesFlag constructs the confirmation bypass flag used by destructive
// subcommands.
func NewYesFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "yes",
		Aliases:     []string{"y"},
		Usage:       "skip the confirmation prompt",
		HideDefault: true,
	}
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config
// file sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	if path == "" {
		return flag
	}

	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}
