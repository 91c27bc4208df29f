// ABOUTME: Tests for version information
// ABOUTME: Ensures version strings are defined and combined correctly
package version

import "testing"

func TestDefined(t *testing.T) {
	for name, v := range map[string]string{
		"Version":      Version,
		"Product":      Product,
		"Manufacturer": Manufacturer,
	} {
		if v == "" || len(v) > 100 {
			t.Errorf("%s has unreasonable value %q", name, v)
		}
	}
}

func TestString(t *testing.T) {
	if got, want := String(), Product+" "+Version; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
