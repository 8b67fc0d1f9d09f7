package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOpts_Validate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		opts    newOpts
		wantErr string
	}{
		{"plain", newOpts{}, ""},
		{"refresh", newOpts{Refresh: true}, ""},
		{"paths imply refresh", newOpts{refreshOpts: refreshOpts{Paths: []string{"a"}, Force: true}}, ""},
		{"refresh from index", newOpts{Refresh: true, refreshOpts: refreshOpts{Index: true}}, ""},
		{"index without refresh", newOpts{refreshOpts: refreshOpts{Index: true}}, "--index requires --refresh"},
		{"force without refresh", newOpts{refreshOpts: refreshOpts{Force: true}}, "--force requires --refresh"},
		{
			"submodules without refresh",
			newOpts{refreshOpts: refreshOpts{NoSubmodules: true}},
			"--no-submodules requires --refresh",
		},
		{
			"index with paths",
			newOpts{refreshOpts: refreshOpts{Index: true, Paths: []string{"a"}}},
			"--index cannot be used with paths",
		},
		{
			"index with submodules",
			newOpts{Refresh: true, refreshOpts: refreshOpts{Index: true, Submodules: true}},
			"--index cannot be used with the submodule flags",
		},
		{
			"index with force",
			newOpts{Refresh: true, refreshOpts: refreshOpts{Index: true, Force: true}},
			"--index cannot be used with --force",
		},
		{
			"both submodule flags",
			newOpts{Refresh: true, refreshOpts: refreshOpts{Submodules: true, NoSubmodules: true}},
			"mutually exclusive",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestRefreshOpts_IncludeSubmodules(t *testing.T) {
	assert.True(t, refreshOpts{Submodules: true}.includeSubmodules())
	assert.False(t, refreshOpts{NoSubmodules: true}.includeSubmodules())
}
