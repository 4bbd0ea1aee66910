// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"io"
	"strconv"
	"testing"

	"github.com/aibor/vrboot/internal/cmd"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedUintValue_Set(t *testing.T) {
	ptr := func(n uint64) *uint64 {
		return &n
	}

	nics := func(n uint64) cmd.LimitedUintValue {
		return cmd.LimitedUintValue{Value: ptr(n), Upper: 16}
	}

	tests := []struct {
		name        string
		value       cmd.LimitedUintValue
		input       string
		expected    *uint64
		expectedErr error
	}{
		{
			name:        "empty",
			value:       nics(2),
			expected:    ptr(2),
			expectedErr: strconv.ErrSyntax,
		},
		{
			name:        "not a number",
			value:       nics(2),
			input:       "eth1",
			expected:    ptr(2),
			expectedErr: strconv.ErrSyntax,
		},
		{
			name:        "negative",
			value:       nics(2),
			input:       "-1",
			expected:    ptr(2),
			expectedErr: strconv.ErrSyntax,
		},
		{
			name:        "longer than 64bit",
			value:       nics(2),
			input:       "184467440737095516151111111111111111111",
			expected:    ptr(2),
			expectedErr: strconv.ErrRange,
		},
		{
			name:     "no data nics",
			value:    nics(2),
			input:    "0",
			expected: ptr(0),
		},
		{
			name:     "maximum",
			value:    nics(2),
			input:    "16",
			expected: ptr(16),
		},
		{
			name:        "above maximum",
			value:       nics(2),
			input:       "17",
			expected:    ptr(2),
			expectedErr: cmd.ErrValueOutOfRange,
		},
		{
			name:  "lower bound",
			input: "1",
			value: cmd.LimitedUintValue{
				Value: ptr(3),
				Lower: 1,
				Upper: 100,
			},
			expected: ptr(1),
		},
		{
			name:  "below lower bound",
			input: "1",
			value: cmd.LimitedUintValue{
				Value: ptr(3),
				Lower: 2,
			},
			expected:    ptr(3),
			expectedErr: cmd.ErrValueOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.value.Set(tt.input)
			require.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, tt.expected, tt.value.Value)
		})
	}
}

func TestLimitedUintValue_String(t *testing.T) {
	value := uint64(7)

	assert.Equal(t, "0", (&cmd.LimitedUintValue{}).String())
	assert.Equal(t, "7", (&cmd.LimitedUintValue{Value: &value}).String())
	assert.Equal(t, "uint", (&cmd.LimitedUintValue{}).Type())
}

func TestLimitedUintValue_Flag(t *testing.T) {
	var retries uint64

	newFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.SetOutput(io.Discard)
		flagSet.Var(&cmd.LimitedUintValue{Value: &retries, Upper: 100}, "retries", "")

		return flagSet
	}

	require.NoError(t, newFlagSet().Parse([]string{"--retries", "5"}))
	assert.Equal(t, uint64(5), retries)

	err := newFlagSet().Parse([]string{"--retries=101"})
	require.Error(t, err)
	assert.ErrorContains(t, err, cmd.ErrValueOutOfRange.Error())
	assert.Equal(t, uint64(5), retries, "value kept on error")

	usage := newFlagSet().FlagUsages()
	assert.Contains(t, usage, "--retries uint")
}
