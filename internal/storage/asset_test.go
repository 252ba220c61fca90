package storage

import (
	"fmt"
	"strings"
	"testing"
)

// testSpec is a simple ValidatingSpec for testing
type testSpec struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
}

func (s *testSpec) Validate() error {
	if !s.Valid {
		return fmt.Errorf("spec is invalid")
	}
	return nil
}

func (s *testSpec) Selector() string {
	return s.Name
}

func TestAsset_Validate(t *testing.T) {
	tests := map[string]struct {
		asset   Asset[*testSpec]
		expErrs []string
	}{
		"valid asset": {
			asset: Asset[*testSpec]{
				Version:    1,
				Kind:       "test",
				Identifier: "test-id",
				Spec:       &testSpec{Valid: true},
			},
		},
		"version not set": {
			asset: Asset[*testSpec]{
				Kind:       "test",
				Identifier: "test-id",
				Spec:       &testSpec{Valid: true},
			},
			expErrs: []string{"version must be set"},
		},
		"wrong kind": {
			asset: Asset[*testSpec]{
				Version:    1,
				Kind:       "zone",
				Identifier: "test-id",
				Spec:       &testSpec{Valid: true},
			},
			expErrs: []string{`kind "zone" is not "test"`},
		},
		"empty identifier": {
			asset: Asset[*testSpec]{
				Version: 1,
				Kind:    "test",
				Spec:    &testSpec{Valid: true},
			},
			expErrs: []string{"id must be set"},
		},
		"identifier with underscore": {
			asset: Asset[*testSpec]{
				Version:    1,
				Kind:       "test",
				Identifier: "test_id",
				Spec:       &testSpec{Valid: true},
			},
			expErrs: []string{"id must be alphanumeric"},
		},
		"invalid spec": {
			asset: Asset[*testSpec]{
				Version:    1,
				Kind:       "test",
				Identifier: "test-id",
				Spec:       &testSpec{Valid: false},
			},
			expErrs: []string{"spec is invalid"},
		},
		"multiple errors": {
			asset: Asset[*testSpec]{
				Spec: &testSpec{Valid: false},
			},
			expErrs: []string{
				"version must be set",
				`kind "" is not "test"`,
				"id must be set",
				"spec is invalid",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.asset.Validate("test")

			if len(tt.expErrs) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Errorf("expected errors %v, got nil", tt.expErrs)
				return
			}

			errStr := err.Error()
			for _, e := range tt.expErrs {
				if !strings.Contains(errStr, e) {
					t.Errorf("error %q does not contain %q", errStr, e)
				}
			}
		})
	}
}
