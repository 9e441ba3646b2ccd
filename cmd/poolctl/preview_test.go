package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPreviewInvestment(t *testing.T) {
	out, err := run(t, "preview", "investment", "--principal", "1000", "--rate", "0.10", "--format", "json")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "100.00", v["projected_yield"])
	assert.Equal(t, "1100.00", v["projected_total"])
}

func TestPreviewLoan_Table(t *testing.T) {
	out, err := run(t, "preview", "loan", "--principal", "1200", "--rate", "0", "--term", "3", "--first", "2025-03-10")
	require.NoError(t, err)

	assert.Contains(t, out, "2025-03-10")
	assert.Contains(t, out, "2025-05-10")
	assert.Contains(t, out, "total paid 1200.00, interest 0.00")
	assert.Equal(t, 6, strings.Count(out, "\n"), "header, three installments, blank line and totals")
}

func TestPreview_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing principal", []string{"preview", "loan", "--rate", "0.1"}},
		{"bad rate", []string{"preview", "investment", "--principal", "10", "--rate", "ten"}},
		{"bad date", []string{"preview", "loan", "--principal", "10", "--rate", "0.1", "--first", "10/03/2025"}},
		{"zero term", []string{"preview", "loan", "--principal", "10", "--rate", "0.1", "--term", "0"}},
		{"bad format", []string{"preview", "investment", "--principal", "10", "--rate", "0.1", "--format", "xml"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			assert.Error(t, err)
		})
	}
}
