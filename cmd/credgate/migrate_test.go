// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/pkg/errutil"
)

// cliMockMigrator implements Migrator for CLI tests.
type cliMockMigrator struct {
	upCalled    bool
	downCalled  bool
	upErr       error
	downErr     error
	version     uint
	dirty       bool
	versionErr  error
	closeCalled bool
}

func (m *cliMockMigrator) Up() error   { m.upCalled = true; return m.upErr }
func (m *cliMockMigrator) Down() error { m.downCalled = true; return m.downErr }
func (m *cliMockMigrator) Version() (uint, bool, error) {
	return m.version, m.dirty, m.versionErr
}
func (m *cliMockMigrator) Close() error { m.closeCalled = true; return nil }

// withMockMigrator swaps the migrator factory for the duration of a test.
func withMockMigrator(t *testing.T, m Migrator) {
	t.Helper()
	original := newMigrator
	newMigrator = func(_ string) (Migrator, error) { return m, nil }
	t.Cleanup(func() { newMigrator = original })
}

func runMigrateCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewMigrateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateUp(t *testing.T) {
	t.Run("requires DATABASE_URL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := runMigrateCmd(t, "up")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})

	t.Run("applies migrations", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/credgate")
		migrator := &cliMockMigrator{}
		withMockMigrator(t, migrator)

		out, err := runMigrateCmd(t, "up")
		require.NoError(t, err)
		assert.True(t, migrator.upCalled)
		assert.True(t, migrator.closeCalled)
		assert.Contains(t, out, "Migrations applied")
	})

	t.Run("surfaces migration failure", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/credgate")
		migrator := &cliMockMigrator{upErr: errors.New("database locked")}
		withMockMigrator(t, migrator)

		_, err := runMigrateCmd(t, "up")
		require.Error(t, err)
		assert.True(t, migrator.closeCalled, "Close should run even when Up fails")
	})
}

func TestMigrateDown(t *testing.T) {
	t.Run("refuses without --yes", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/credgate")
		migrator := &cliMockMigrator{}
		withMockMigrator(t, migrator)

		_, err := runMigrateCmd(t, "down")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIRMATION_REQUIRED")
		assert.False(t, migrator.downCalled)
	})

	t.Run("rolls back with --yes", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/credgate")
		migrator := &cliMockMigrator{}
		withMockMigrator(t, migrator)

		out, err := runMigrateCmd(t, "down", "--yes")
		require.NoError(t, err)
		assert.True(t, migrator.downCalled)
		assert.Contains(t, out, "Migrations rolled back")
	})
}

func TestMigrateStatus(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/credgate")

	t.Run("fresh database", func(t *testing.T) {
		withMockMigrator(t, &cliMockMigrator{version: 0})

		out, err := runMigrateCmd(t, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "No migrations applied")
	})

	t.Run("reports version", func(t *testing.T) {
		withMockMigrator(t, &cliMockMigrator{version: 1})

		out, err := runMigrateCmd(t, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Schema version: 1")
		assert.NotContains(t, out, "dirty")
	})

	t.Run("warns on dirty schema", func(t *testing.T) {
		withMockMigrator(t, &cliMockMigrator{version: 1, dirty: true})

		out, err := runMigrateCmd(t, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "dirty")
	})
}
