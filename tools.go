// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

//go:build tools
// +build tools

// Package main pins tool and test dependencies to go.mod.
package main

import (
	_ "github.com/onsi/ginkgo/v2"
	_ "github.com/onsi/gomega"
	_ "github.com/pashagolub/pgxmock/v4"
	_ "github.com/stretchr/testify/mock"
	_ "github.com/testcontainers/testcontainers-go/modules/postgres"
	_ "go.uber.org/goleak"
)
