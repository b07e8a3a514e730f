package plugin_test

import (
	"testing"

	Np "github.com/maroda/nocturne/plugin"
)

func TestScorerLookup(t *testing.T) {
	t.Run("Returns known scorer", func(t *testing.T) {
		known := "lz76"
		got, err := Np.ScorerLookup(known)
		want := known
		assertError(t, err, nil)
		assertStringContains(t, got.Type(), want)
	})

	t.Run("Returns error if scorer doesn't exist", func(t *testing.T) {
		unknown := "craquemattic"
		_, err := Np.ScorerLookup(unknown)
		assertGotError(t, err)
	})
}

func TestSourceLookup(t *testing.T) {
	t.Run("Returns every known stage format", func(t *testing.T) {
		for _, known := range []string{"lines", "polyman", "json"} {
			got, err := Np.SourceLookup(known)
			assertError(t, err, nil)
			assertStringContains(t, got.Type(), known)
		}
	})

	t.Run("Returns error if format doesn't exist", func(t *testing.T) {
		unknown := "edf"
		_, err := Np.SourceLookup(unknown)
		assertGotError(t, err)
	})
}
