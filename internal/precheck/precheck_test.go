package precheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	names []string
	err   error
	calls int
}

func (f *fakeLister) ListResourceGroups(context.Context) ([]string, error) {
	f.calls++
	return f.names, f.err
}

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name    string
		groups  []string
		listErr error
		target  string
		wantErr error
	}{
		{
			name:   "present",
			groups: []string{"rg-other", "lab-rg"},
			target: "lab-rg",
		},
		{
			name:    "absent",
			groups:  []string{"rg-other"},
			target:  "rg-target",
			wantErr: ErrResourceGroupNotFound,
		},
		{
			name:    "case sensitive",
			groups:  []string{"Lab-RG"},
			target:  "lab-rg",
			wantErr: ErrResourceGroupNotFound,
		},
		{
			name:    "empty subscription",
			target:  "lab-rg",
			wantErr: ErrResourceGroupNotFound,
		},
		{
			name:    "listing fails",
			listErr: errors.New("dial tcp: lookup management.azure.com: no such host"),
			target:  "lab-rg",
			wantErr: ErrListFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{names: tt.groups, err: tt.listErr}
			err := New(lister).Check(context.Background(), tt.target)

			assert.Equal(t, 1, lister.calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.listErr != nil {
				assert.ErrorIs(t, err, tt.listErr)
				assert.Contains(t, err.Error(), tt.listErr.Error())
			} else {
				assert.Contains(t, err.Error(), tt.target)
			}
		})
	}
}

func TestChecker_Idempotent(t *testing.T) {
	lister := &fakeLister{names: []string{"rg-other"}}
	c := New(lister)

	first := c.Check(context.Background(), "rg-target")
	second := c.Check(context.Background(), "rg-target")
	assert.ErrorIs(t, first, ErrResourceGroupNotFound)
	assert.ErrorIs(t, second, ErrResourceGroupNotFound)
	assert.Equal(t, first.Error(), second.Error())

	lister.names = []string{"rg-target"}
	assert.NoError(t, c.Check(context.Background(), "rg-target"))
	assert.NoError(t, c.Check(context.Background(), "rg-target"))

	// no caching: every call lists again
	assert.Equal(t, 4, lister.calls)
}
