// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package lambda

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/awsadm/awsadm/internal/log"
)

const (
	packageDirName = "package"
	releaseDirName = "release"

	defaultPythonVersion    = "3.11"
	defaultRequirementsFile = "requirements.txt"
)

// excludedPackages ship with the Lambda runtime and are pruned from the
// bundle.
var excludedPackages = map[string]bool{
	"boto3":    true,
	"botocore": true,
}

// PackageParams controls how a function directory is bundled.
type PackageParams struct {
	BaseDir          string
	UseDocker        bool
	PythonVersion    string
	RequirementsFile string
}

// Package installs the function's dependencies, assembles a release tree,
// and zips it next to the function directory. It returns the zip path.
func Package(ctx context.Context, params PackageParams) (string, error) {
	if params.PythonVersion == "" {
		params.PythonVersion = defaultPythonVersion
	}
	if params.RequirementsFile == "" {
		params.RequirementsFile = defaultRequirementsFile
	}

	baseDir, err := filepath.Abs(params.BaseDir)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(baseDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("function directory %s not found", params.BaseDir)
	}

	if err := installDependencies(ctx, baseDir, params); err != nil {
		return "", err
	}

	releaseDir := filepath.Join(baseDir, releaseDirName)
	if err := assembleRelease(baseDir, releaseDir); err != nil {
		return "", err
	}

	zipPath := filepath.Join(baseDir, filepath.Base(baseDir)+".zip")
	if err := zipDir(releaseDir, zipPath); err != nil {
		return "", err
	}
	log.Infof("packaged function to %s", zipPath)

	if err := os.RemoveAll(filepath.Join(baseDir, packageDirName)); err != nil {
		return "", err
	}
	return zipPath, nil
}

// installDependencies installs the requirements into the package directory,
// either with the local pip or inside a Lambda runtime container.
func installDependencies(ctx context.Context, baseDir string, params PackageParams) error {
	requirementsPath := filepath.Join(baseDir, params.RequirementsFile)
	if _, err := os.Stat(requirementsPath); err != nil {
		log.Warnf("requirements file not found, skipping dependency installation")
		return nil
	}

	packageDir := filepath.Join(baseDir, packageDirName)
	if err := os.MkdirAll(packageDir, 0o755); err != nil {
		return err
	}

	var cmd *exec.Cmd
	if params.UseDocker {
		log.Infof("packaging dependencies in a python:%s Lambda container", params.PythonVersion)
		image := "public.ecr.aws/lambda/python:" + params.PythonVersion
		cmd = exec.CommandContext(ctx, "docker", "run", "--rm",
			"-v", baseDir+":/var/task", "--entrypoint", "pip", image,
			"install", "-r", "/var/task/"+params.RequirementsFile, "-t", "/var/task/"+packageDirName)
	} else {
		log.Infof("installing dependencies locally for python %s", params.PythonVersion)
		cmd = exec.CommandContext(ctx, "pip", "install", "-r", requirementsPath, "-t", packageDir)
	}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}
	return nil
}

// assembleRelease builds a clean release tree: installed dependencies minus
// the runtime-provided packages, then the function source.
func assembleRelease(baseDir, releaseDir string) error {
	if err := os.RemoveAll(releaseDir); err != nil {
		return err
	}
	if err := os.MkdirAll(releaseDir, 0o755); err != nil {
		return err
	}

	packageDir := filepath.Join(baseDir, packageDirName)
	if entries, err := os.ReadDir(packageDir); err == nil {
		for _, entry := range entries {
			if excludedPackages[dependencyName(entry.Name())] {
				continue
			}
			if err := copyTree(filepath.Join(packageDir, entry.Name()), filepath.Join(releaseDir, entry.Name())); err != nil {
				return err
			}
		}
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return err
	}
	skip := map[string]bool{packageDirName: true, releaseDirName: true, "tests": true}
	for _, entry := range entries {
		if skip[entry.Name()] || strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		if err := copyTree(filepath.Join(baseDir, entry.Name()), filepath.Join(releaseDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// dependencyName extracts the package name from a directory or dist-info
// entry.
func dependencyName(entry string) string {
	name, _, _ := strings.Cut(entry, "-")
	return name
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode())
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// zipDir zips the contents of dir (not the directory itself) into zipPath.
func zipDir(dir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := zip.NewWriter(out)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		f, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(f, in)
		return err
	})
	if err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
