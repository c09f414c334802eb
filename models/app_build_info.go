// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

const unknownBuildValue = "N/A"

// AppBuildInfo is the version, date and commit linked into a binary with
// -ldflags. Empty values mean a local build.
type AppBuildInfo struct {
	buildVersion string
	buildDate    string
	buildCommit  string
}

func NewAppBuildInfo(buildVersion, buildDate, buildCommit string) AppBuildInfo {
	return AppBuildInfo{
		buildVersion: buildVersion,
		buildDate:    buildDate,
		buildCommit:  buildCommit,
	}
}

// BuildVersion returns the linked version, or "" for a local build.
func (a AppBuildInfo) BuildVersion() string {
	return a.buildVersion
}

// String renders the three values on separate lines, "N/A" standing in for
// the missing ones.
func (a AppBuildInfo) String() string {
	return fmt.Sprintf("Build version: %s\nBuild date: %s\nBuild commit: %s",
		orUnknown(a.buildVersion), orUnknown(a.buildDate), orUnknown(a.buildCommit))
}

func orUnknown(v string) string {
	if v == "" {
		return unknownBuildValue
	}
	return v
}
